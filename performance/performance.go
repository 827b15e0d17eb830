// Copyright 2024-2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package performance holds the consolidated per-side return and weight
// tables consumed by the attribution and risk statistics engines. Time-series
// consolidation of raw data happens upstream; this package only validates the
// tabular shape it is given and provides read-only accessors.
package performance

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-attribution/common"
	"github.com/penny-vault/pv-attribution/linking"
)

var (
	ErrNoSubperiods               = errors.New("performance must contain at least one subperiod")
	ErrReturnSeriesLengthMismatch = errors.New("per-asset series length does not match the number of subperiods")
	ErrWeightsDoNotSumToOne       = errors.New("subperiod weights do not sum to 1.0")
	ErrCrossInstanceInconsistency = errors.New("performances are not built from the same underlying data")
)

// equivalent returns are compared after rounding to this many places
const equivalenceRoundingPlaces = 11

// Period is a single reporting subperiod with its total return
type Period struct {
	Begin       time.Time
	End         time.Time
	TotalReturn float64
}

// Days returns the number of calendar days covered by the period
func (p Period) Days() int {
	return int(p.End.Sub(p.Begin).Hours() / 24)
}

// AssetSeries carries one asset's per-subperiod columns. Contribution must
// equal weight * return for every subperiod; that identity is supplied by the
// upstream consolidation and re-verified by the attribution auditor.
// ConsolidatedReturns re-bases the asset's return for comparability across
// the full measurement horizon; when nil, the raw return column is used.
type AssetSeries struct {
	Returns             []float64
	Weights             []float64
	Contributions       []float64
	ConsolidatedReturns []float64
}

// Performance is one side (portfolio or benchmark) of an attribution input
type Performance struct {
	Name string

	// SubperiodsConsolidated indicates that subperiods were merged from a
	// finer frequency upstream; weight * return == contribution no longer
	// holds exactly for consolidated subperiods, so the auditor skips that
	// check when set
	SubperiodsConsolidated bool

	periods []Period
	assets  map[string]*AssetSeries
}

// New validates the tabular shape of the input and constructs a Performance.
// Asset identifiers are lower-cased. Every per-asset column must have one
// value per subperiod, and the weights for each subperiod must sum to 1.0.
func New(name string, periods []Period, assets map[string]AssetSeries) (*Performance, error) {
	if len(periods) == 0 {
		return nil, ErrNoSubperiods
	}

	perf := &Performance{
		Name:    name,
		periods: periods,
		assets:  make(map[string]*AssetSeries, len(assets)),
	}

	n := len(periods)
	for identifier, series := range assets {
		series := series
		if len(series.Returns) != n || len(series.Weights) != n || len(series.Contributions) != n {
			return nil, fmt.Errorf("%w: asset %s", ErrReturnSeriesLengthMismatch, identifier)
		}
		if series.ConsolidatedReturns != nil && len(series.ConsolidatedReturns) != n {
			return nil, fmt.Errorf("%w: asset %s consolidated returns", ErrReturnSeriesLengthMismatch, identifier)
		}
		perf.assets[strings.ToLower(identifier)] = &series
	}

	for periodIdx := range periods {
		sum := 0.0
		for _, series := range perf.assets {
			sum += series.Weights[periodIdx]
		}
		if !common.AreNear(sum, 1.0, common.ToleranceLow) {
			log.Error().Str("Performance", name).Int("Subperiod", periodIdx).Float64("WeightSum", sum).Msg("weights do not sum to 1.0")
			return nil, fmt.Errorf("%w: subperiod %d sums to %f", ErrWeightsDoNotSumToOne, periodIdx, sum)
		}
	}

	return perf, nil
}

// Periods returns the ordered subperiods
func (perf *Performance) Periods() []Period {
	return perf.periods
}

// Begin returns the beginning date of the measurement period
func (perf *Performance) Begin() time.Time {
	return perf.periods[0].Begin
}

// End returns the ending date of the measurement period
func (perf *Performance) End() time.Time {
	return perf.periods[len(perf.periods)-1].End
}

// TotalReturns returns the per-subperiod total return series
func (perf *Performance) TotalReturns() []float64 {
	returns := make([]float64, len(perf.periods))
	for idx, period := range perf.periods {
		returns[idx] = period.TotalReturn
	}
	return returns
}

// OverallReturn returns the geometrically compounded return over the whole
// measurement period
func (perf *Performance) OverallReturn() float64 {
	compounded := 1.0
	for _, period := range perf.periods {
		compounded *= 1.0 + period.TotalReturn
	}
	return compounded - 1.0
}

// LinkingCoefficients returns the logarithmic linking coefficients that
// reconcile the per-subperiod contribution series to the overall return
func (perf *Performance) LinkingCoefficients() ([]float64, error) {
	return linking.LinkingCoefficients(perf.OverallReturn(), perf.TotalReturns())
}

// Identifiers returns the sorted set of asset identifiers
func (perf *Performance) Identifiers() []string {
	identifiers := make([]string, 0, len(perf.assets))
	for identifier := range perf.assets {
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)
	return identifiers
}

// HasAsset reports whether the identifier is present
func (perf *Performance) HasAsset(identifier string) bool {
	_, ok := perf.assets[strings.ToLower(identifier)]
	return ok
}

// Returns returns the asset's per-subperiod return column; zeros if the
// asset is not present
func (perf *Performance) Returns(identifier string) []float64 {
	if series, ok := perf.assets[strings.ToLower(identifier)]; ok {
		return series.Returns
	}
	return make([]float64, len(perf.periods))
}

// Weights returns the asset's per-subperiod weight column; zeros if the
// asset is not present
func (perf *Performance) Weights(identifier string) []float64 {
	if series, ok := perf.assets[strings.ToLower(identifier)]; ok {
		return series.Weights
	}
	return make([]float64, len(perf.periods))
}

// Contributions returns the asset's per-subperiod contribution column; zeros
// if the asset is not present
func (perf *Performance) Contributions(identifier string) []float64 {
	if series, ok := perf.assets[strings.ToLower(identifier)]; ok {
		return series.Contributions
	}
	return make([]float64, len(perf.periods))
}

// ConsolidatedReturns returns the asset's consolidated return column. The
// consolidation is injected upstream; when it was not supplied the raw return
// column already satisfies the comparability requirement and is returned.
func (perf *Performance) ConsolidatedReturns(identifier string) []float64 {
	series, ok := perf.assets[strings.ToLower(identifier)]
	if !ok {
		return make([]float64, len(perf.periods))
	}
	if series.ConsolidatedReturns != nil {
		return series.ConsolidatedReturns
	}
	return series.Returns
}

// OverallAssetReturn returns the asset's return compounded across the whole
// measurement period
func (perf *Performance) OverallAssetReturn(identifier string) float64 {
	compounded := 1.0
	for _, r := range perf.Returns(identifier) {
		compounded *= 1.0 + r
	}
	return compounded - 1.0
}

// AverageWeight returns the asset's mean weight across all subperiods
func (perf *Performance) AverageWeight(identifier string) float64 {
	weights := perf.Weights(identifier)
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	return sum / float64(len(weights))
}

// ClassificationItems returns the default identifier -> display-name table
// used when no classification is supplied: each identifier labels itself
func (perf *Performance) ClassificationItems() map[string]string {
	items := make(map[string]string, len(perf.assets))
	for identifier := range perf.assets {
		items[identifier] = strings.ToUpper(identifier)
	}
	return items
}

// insertZeroAsset adds a zero-filled asset column set for the identifier;
// zero weights contribute nothing to any sum
func (perf *Performance) insertZeroAsset(identifier string) {
	n := len(perf.periods)
	perf.assets[strings.ToLower(identifier)] = &AssetSeries{
		Returns:       make([]float64, n),
		Weights:       make([]float64, n),
		Contributions: make([]float64, n),
	}
}

// EqualizeColumns ensures both sides carry the identical asset identifier
// set by inserting zero-filled columns for any identifier present on only
// one side. All downstream attribution arithmetic is elementwise across the
// two sides and requires this postcondition.
func EqualizeColumns(portfolio, benchmark *Performance) {
	for _, identifier := range benchmark.Identifiers() {
		if !portfolio.HasAsset(identifier) {
			portfolio.insertZeroAsset(identifier)
		}
	}
	for _, identifier := range portfolio.Identifiers() {
		if !benchmark.HasAsset(identifier) {
			benchmark.insertZeroAsset(identifier)
		}
	}
}

// Aligned verifies that the two sides of an attribution share the same
// subperiod date boundaries. Consolidation upstream is responsible for
// producing matching calendars; arithmetic across misaligned sides would be
// silently wrong.
func Aligned(portfolio, benchmark *Performance) error {
	if len(portfolio.periods) != len(benchmark.periods) {
		return fmt.Errorf("%w: %s has %d subperiods, %s has %d",
			ErrCrossInstanceInconsistency, portfolio.Name, len(portfolio.periods), benchmark.Name, len(benchmark.periods))
	}
	for idx, p := range portfolio.periods {
		b := benchmark.periods[idx]
		if !p.Begin.Equal(b.Begin) || !p.End.Equal(b.End) {
			return fmt.Errorf("%w: subperiod %d date range differs between %s and %s",
				ErrCrossInstanceInconsistency, idx, portfolio.Name, benchmark.Name)
		}
	}
	return nil
}

// Audit cross-validates that all of the given performances were built from
// the same underlying data: period boundaries, day counts and total returns
// (rounded for equivalence) must match exactly. This catches accidental use
// of mismatched source data when several classifications of the same
// portfolio are compared side by side.
func Audit(performances ...*Performance) error {
	if len(performances) < 2 {
		return nil
	}

	base := performances[0]
	for _, perf := range performances[1:] {
		if len(perf.periods) != len(base.periods) {
			return fmt.Errorf("%w: %s has %d subperiods, %s has %d",
				ErrCrossInstanceInconsistency, base.Name, len(base.periods), perf.Name, len(perf.periods))
		}

		for idx, basePeriod := range base.periods {
			period := perf.periods[idx]
			if !period.Begin.Equal(basePeriod.Begin) || !period.End.Equal(basePeriod.End) {
				return fmt.Errorf("%w: subperiod %d date range differs between %s and %s",
					ErrCrossInstanceInconsistency, idx, base.Name, perf.Name)
			}
			if period.Days() != basePeriod.Days() {
				return fmt.Errorf("%w: subperiod %d day count differs between %s and %s",
					ErrCrossInstanceInconsistency, idx, base.Name, perf.Name)
			}
			if common.RoundTo(period.TotalReturn, equivalenceRoundingPlaces) !=
				common.RoundTo(basePeriod.TotalReturn, equivalenceRoundingPlaces) {
				return fmt.Errorf("%w: subperiod %d total return differs between %s and %s",
					ErrCrossInstanceInconsistency, idx, base.Name, perf.Name)
			}
		}
	}

	return nil
}
