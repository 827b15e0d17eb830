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

// Package attribution decomposes a portfolio's excess return over a benchmark
// into Brinson-Fachler allocation and selection effects per classification
// item and per subperiod, with Carino logarithmic linking so that additive
// subperiod effects reconcile exactly to the geometrically compounded active
// return over the whole measurement period.
package attribution

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"

	"github.com/penny-vault/pv-attribution/classification"
	"github.com/penny-vault/pv-attribution/frequency"
	"github.com/penny-vault/pv-attribution/linking"
	"github.com/penny-vault/pv-attribution/performance"
	"github.com/penny-vault/pv-attribution/tabular"
)

// DefaultClassificationName labels the identifier-as-itself classification
// derived from the portfolio when the caller supplies none
const DefaultClassificationName = "Security"

// assetMetrics holds one asset's computed values for a single subperiod (or
// for the overall row, where the simple values are NaN)
type assetMetrics struct {
	portfolioContribSimple   float64
	benchmarkContribSimple   float64
	portfolioContribSmoothed float64
	benchmarkContribSmoothed float64
	allocationSimple         float64
	selectionSimple          float64
	allocationSmoothed       float64
	selectionSmoothed        float64
}

// row is one subperiod of the attribution table: period-level totals plus
// per-asset metrics
type row struct {
	begin time.Time
	end   time.Time

	portfolioReturn float64
	benchmarkReturn float64
	activeReturn    float64

	portfolioContribSimple   float64
	benchmarkContribSimple   float64
	activeContribSimple      float64
	portfolioContribSmoothed float64
	benchmarkContribSmoothed float64
	activeContribSmoothed    float64

	allocationSimple   float64
	selectionSimple    float64
	totalSimple        float64
	allocationSmoothed float64
	selectionSmoothed  float64
	totalSmoothed      float64

	cumPortfolioReturn  float64
	cumBenchmarkReturn  float64
	cumActiveReturn     float64
	cumPortfolioContrib float64
	cumBenchmarkContrib float64
	cumActiveContrib    float64
	cumAllocation       float64
	cumSelection        float64
	cumTotal            float64

	assets map[string]*assetMetrics
}

// Attribution holds the portfolio and benchmark performances, the
// classification, and the computed contribution and attribution effects.
// Instances are immutable once constructed; the view cache is the only
// internal mutable state and is insert-only.
type Attribution struct {
	Portfolio      *performance.Performance
	Benchmark      *performance.Performance
	Classification *classification.Classification
	Frequency      frequency.Frequency

	identifiers []string
	rows        []*row
	overall     *row
	views       map[View]*tabular.Table
}

// New computes the full attribution for the portfolio/benchmark pair. The
// classification source labels assets for display; when source is nil the
// default identifier-as-itself classification is derived from the portfolio.
// Construction eagerly computes the subperiod table and the overall row.
func New(portfolio, benchmark *performance.Performance, classificationName string, source classification.Source, freq frequency.Frequency) (*Attribution, error) {
	if err := performance.Aligned(portfolio, benchmark); err != nil {
		return nil, err
	}

	if source == nil {
		source = classification.Pairs(portfolio.ClassificationItems())
		if classificationName == "" {
			classificationName = DefaultClassificationName
		}
	}

	class, err := classification.New(classificationName, source)
	if err != nil {
		return nil, err
	}

	performance.EqualizeColumns(portfolio, benchmark)

	attr := &Attribution{
		Portfolio:      portfolio,
		Benchmark:      benchmark,
		Classification: class,
		Frequency:      freq,
		identifiers:    portfolio.Identifiers(),
		views:          make(map[View]*tabular.Table, 4),
	}

	if err := attr.compute(); err != nil {
		return nil, err
	}
	attr.computeOverall()

	log.Debug().
		Str("Portfolio", portfolio.Name).
		Str("Benchmark", benchmark.Name).
		Str("Classification", class.Name).
		Int("Subperiods", len(attr.rows)).
		Int("Assets", len(attr.identifiers)).
		Msg("computed attribution")

	return attr, nil
}

// compute fills the per-subperiod table: simple and smoothed contributions,
// Brinson-Fachler effects, horizontal rollups, and cumulative series
func (attr *Attribution) compute() error {
	portfolio := attr.Portfolio
	benchmark := attr.Benchmark

	periods := portfolio.Periods()
	n := len(periods)

	portfolioReturns := portfolio.TotalReturns()
	benchmarkReturns := benchmark.TotalReturns()
	portfolioOverall := portfolio.OverallReturn()
	benchmarkOverall := benchmark.OverallReturn()

	// contribution smoothing reconciles each side's own contribution series
	// to its own compounded total
	portfolioCoefficients, err := portfolio.LinkingCoefficients()
	if err != nil {
		return err
	}
	benchmarkCoefficients, err := benchmark.LinkingCoefficients()
	if err != nil {
		return err
	}

	// effect smoothing reconciles the difference of the two series to the
	// compounded active return: carino(p_t, b_t) / carino(P, B)
	overallCoefficient, err := linking.CarinoCoefficient(portfolioOverall, benchmarkOverall)
	if err != nil {
		return err
	}
	effectCoefficients := make([]float64, n)
	for idx := range periods {
		coefficient, err := linking.CarinoCoefficient(portfolioReturns[idx], benchmarkReturns[idx])
		if err != nil {
			return err
		}
		effectCoefficients[idx] = coefficient / overallCoefficient
	}

	attr.rows = make([]*row, n)
	for idx, period := range periods {
		attr.rows[idx] = &row{
			begin:           period.Begin,
			end:             period.End,
			portfolioReturn: portfolioReturns[idx],
			benchmarkReturn: benchmarkReturns[idx],
			activeReturn:    portfolioReturns[idx] - benchmarkReturns[idx],
			assets:          make(map[string]*assetMetrics, len(attr.identifiers)),
		}
	}

	// per-asset columns are computed as whole vectors across subperiods and
	// then scattered into the rows
	for _, identifier := range attr.identifiers {
		portfolioWeights := portfolio.Weights(identifier)
		benchmarkWeights := benchmark.Weights(identifier)
		portfolioConsolidated := portfolio.ConsolidatedReturns(identifier)
		benchmarkConsolidated := benchmark.ConsolidatedReturns(identifier)
		portfolioContribs := portfolio.Contributions(identifier)
		benchmarkContribs := benchmark.Contributions(identifier)

		// allocation = (rc_b - R_b) * (w_p - w_b)
		allocationSimple := make([]float64, n)
		copy(allocationSimple, benchmarkConsolidated)
		floats.Sub(allocationSimple, benchmarkReturns)
		activeWeights := make([]float64, n)
		copy(activeWeights, portfolioWeights)
		floats.Sub(activeWeights, benchmarkWeights)
		floats.Mul(allocationSimple, activeWeights)

		// selection = w_p * (rc_p - rc_b)
		selectionSimple := make([]float64, n)
		copy(selectionSimple, portfolioConsolidated)
		floats.Sub(selectionSimple, benchmarkConsolidated)
		floats.Mul(selectionSimple, portfolioWeights)

		allocationSmoothed := make([]float64, n)
		copy(allocationSmoothed, allocationSimple)
		floats.Mul(allocationSmoothed, effectCoefficients)

		selectionSmoothed := make([]float64, n)
		copy(selectionSmoothed, selectionSimple)
		floats.Mul(selectionSmoothed, effectCoefficients)

		portfolioContribSmoothed := make([]float64, n)
		copy(portfolioContribSmoothed, portfolioContribs)
		floats.Mul(portfolioContribSmoothed, portfolioCoefficients)

		benchmarkContribSmoothed := make([]float64, n)
		copy(benchmarkContribSmoothed, benchmarkContribs)
		floats.Mul(benchmarkContribSmoothed, benchmarkCoefficients)

		for idx := range attr.rows {
			attr.rows[idx].assets[identifier] = &assetMetrics{
				portfolioContribSimple:   portfolioContribs[idx],
				benchmarkContribSimple:   benchmarkContribs[idx],
				portfolioContribSmoothed: portfolioContribSmoothed[idx],
				benchmarkContribSmoothed: benchmarkContribSmoothed[idx],
				allocationSimple:         allocationSimple[idx],
				selectionSimple:          selectionSimple[idx],
				allocationSmoothed:       allocationSmoothed[idx],
				selectionSmoothed:        selectionSmoothed[idx],
			}
		}
	}

	// horizontal rollups across assets
	for _, r := range attr.rows {
		for _, metrics := range r.assets {
			r.portfolioContribSimple += metrics.portfolioContribSimple
			r.benchmarkContribSimple += metrics.benchmarkContribSimple
			r.portfolioContribSmoothed += metrics.portfolioContribSmoothed
			r.benchmarkContribSmoothed += metrics.benchmarkContribSmoothed
			r.allocationSimple += metrics.allocationSimple
			r.selectionSimple += metrics.selectionSimple
			r.allocationSmoothed += metrics.allocationSmoothed
			r.selectionSmoothed += metrics.selectionSmoothed
		}
		r.totalSimple = r.allocationSimple + r.selectionSimple
		r.totalSmoothed = r.allocationSmoothed + r.selectionSmoothed
		r.activeContribSimple = r.portfolioContribSimple - r.benchmarkContribSimple
		r.activeContribSmoothed = r.portfolioContribSmoothed - r.benchmarkContribSmoothed
	}

	// cumulative series: returns compound, smoothed contributions and
	// effects sum. Cumulative active return is the difference of the two
	// compounded series, not the sum of per-subperiod active returns.
	cumPortfolio := 1.0
	cumBenchmark := 1.0
	var cumPortfolioContrib, cumBenchmarkContrib, cumActiveContrib float64
	var cumAllocation, cumSelection, cumTotal float64
	for _, r := range attr.rows {
		cumPortfolio *= 1.0 + r.portfolioReturn
		cumBenchmark *= 1.0 + r.benchmarkReturn
		cumPortfolioContrib += r.portfolioContribSmoothed
		cumBenchmarkContrib += r.benchmarkContribSmoothed
		cumActiveContrib += r.activeContribSmoothed
		cumAllocation += r.allocationSmoothed
		cumSelection += r.selectionSmoothed
		cumTotal += r.totalSmoothed

		r.cumPortfolioReturn = cumPortfolio - 1.0
		r.cumBenchmarkReturn = cumBenchmark - 1.0
		r.cumActiveReturn = r.cumPortfolioReturn - r.cumBenchmarkReturn
		r.cumPortfolioContrib = cumPortfolioContrib
		r.cumBenchmarkContrib = cumBenchmarkContrib
		r.cumActiveContrib = cumActiveContrib
		r.cumAllocation = cumAllocation
		r.cumSelection = cumSelection
		r.cumTotal = cumTotal
	}

	return nil
}

// computeOverall derives the single row representing the whole measurement
// period. It starts as an elementwise sum of the subperiod table, then
// overrides: dates to the period bounds, returns to the externally supplied
// compounded values, cumulative columns to their last-subperiod values, and
// every instantaneous "simple" column to NaN since summing instantaneous
// values across time has no defined meaning.
func (attr *Attribution) computeOverall() {
	first := attr.rows[0]
	last := attr.rows[len(attr.rows)-1]

	overall := &row{
		begin:  first.begin,
		end:    last.end,
		assets: make(map[string]*assetMetrics, len(attr.identifiers)),
	}

	for _, r := range attr.rows {
		overall.portfolioContribSmoothed += r.portfolioContribSmoothed
		overall.benchmarkContribSmoothed += r.benchmarkContribSmoothed
		overall.activeContribSmoothed += r.activeContribSmoothed
		overall.allocationSmoothed += r.allocationSmoothed
		overall.selectionSmoothed += r.selectionSmoothed
		overall.totalSmoothed += r.totalSmoothed
	}

	for _, identifier := range attr.identifiers {
		metrics := &assetMetrics{
			portfolioContribSimple: math.NaN(),
			benchmarkContribSimple: math.NaN(),
			allocationSimple:       math.NaN(),
			selectionSimple:        math.NaN(),
		}
		for _, r := range attr.rows {
			assetRow := r.assets[identifier]
			metrics.portfolioContribSmoothed += assetRow.portfolioContribSmoothed
			metrics.benchmarkContribSmoothed += assetRow.benchmarkContribSmoothed
			metrics.allocationSmoothed += assetRow.allocationSmoothed
			metrics.selectionSmoothed += assetRow.selectionSmoothed
		}
		overall.assets[identifier] = metrics
	}

	overall.portfolioReturn = attr.Portfolio.OverallReturn()
	overall.benchmarkReturn = attr.Benchmark.OverallReturn()
	overall.activeReturn = overall.portfolioReturn - overall.benchmarkReturn

	overall.cumPortfolioReturn = last.cumPortfolioReturn
	overall.cumBenchmarkReturn = last.cumBenchmarkReturn
	overall.cumActiveReturn = last.cumActiveReturn
	overall.cumPortfolioContrib = last.cumPortfolioContrib
	overall.cumBenchmarkContrib = last.cumBenchmarkContrib
	overall.cumActiveContrib = last.cumActiveContrib
	overall.cumAllocation = last.cumAllocation
	overall.cumSelection = last.cumSelection
	overall.cumTotal = last.cumTotal

	overall.portfolioContribSimple = math.NaN()
	overall.benchmarkContribSimple = math.NaN()
	overall.activeContribSimple = math.NaN()
	overall.allocationSimple = math.NaN()
	overall.selectionSimple = math.NaN()
	overall.totalSimple = math.NaN()

	attr.overall = overall
}

// Begin returns the beginning date of the measurement period
func (attr *Attribution) Begin() time.Time {
	return attr.rows[0].begin
}

// End returns the ending date of the measurement period
func (attr *Attribution) End() time.Time {
	return attr.rows[len(attr.rows)-1].end
}

// Identifiers returns the equalized asset identifier set
func (attr *Attribution) Identifiers() []string {
	return attr.identifiers
}

// Title returns the two display title lines for a view
func (attr *Attribution) Title(view View) (string, string) {
	line1 := fmt.Sprintf("%s vs %s", attr.Portfolio.Name, attr.Benchmark.Name)
	line2 := fmt.Sprintf("%s by %s: %s from %s to %s", view, attr.Classification.Name,
		attr.Frequency, attr.Begin().Format("2006-01-02"), attr.End().Format("2006-01-02"))
	return line1, line2
}
