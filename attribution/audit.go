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

package attribution

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-attribution/common"
	"github.com/penny-vault/pv-attribution/performance"
)

var ErrArithmeticIdentity = errors.New("arithmetic identity does not hold")

// Audit re-verifies the arithmetic identities that the attribution
// computation is supposed to guarantee. A passing audit means the numbers
// reconcile: contributions sum to returns, smoothed effects sum to the
// compounded active return, and the overall row agrees with the vertical
// sums of the subperiod table. An audit failure indicates corrupted input
// data or a computation defect and should be treated as fatal.
func (attr *Attribution) Audit() error {
	if err := performance.Aligned(attr.Portfolio, attr.Benchmark); err != nil {
		return err
	}

	if err := attr.auditInputContributions(); err != nil {
		return err
	}
	if err := attr.auditSubperiodRows(); err != nil {
		return err
	}
	if err := attr.auditOverallRow(); err != nil {
		return err
	}
	if err := attr.auditVerticalSums(); err != nil {
		return err
	}

	log.Debug().
		Str("Portfolio", attr.Portfolio.Name).
		Str("Benchmark", attr.Benchmark.Name).
		Msg("attribution audit passed")
	return nil
}

// auditInputContributions verifies weight * return == contribution for every
// asset and subperiod on both sides. Consolidating subperiods upstream merges
// contributions in a way that breaks this identity, so the check is skipped
// for sides flagged as consolidated.
func (attr *Attribution) auditInputContributions() error {
	for _, perf := range []*performance.Performance{attr.Portfolio, attr.Benchmark} {
		if perf.SubperiodsConsolidated {
			continue
		}
		for _, identifier := range attr.identifiers {
			returns := perf.Returns(identifier)
			weights := perf.Weights(identifier)
			contribs := perf.Contributions(identifier)
			for idx := range returns {
				if !common.AreNear(weights[idx]*returns[idx], contribs[idx], common.ToleranceMedium) {
					return fmt.Errorf("%w: %s asset %s subperiod %d: weight * return != contribution (%f * %f != %f)",
						ErrArithmeticIdentity, perf.Name, identifier, idx, weights[idx], returns[idx], contribs[idx])
				}
			}
		}
	}
	return nil
}

// auditSubperiodRows verifies the horizontal identities on each subperiod
// row: simple contributions sum to the period return on each side, and both
// the simple active contribution and the simple total effect equal the
// period active return
func (attr *Attribution) auditSubperiodRows() error {
	for idx, r := range attr.rows {
		checks := []struct {
			name string
			a, b float64
		}{
			{"portfolio contributions sum to portfolio return", r.portfolioContribSimple, r.portfolioReturn},
			{"benchmark contributions sum to benchmark return", r.benchmarkContribSimple, r.benchmarkReturn},
			{"active contribution equals active return", r.activeContribSimple, r.activeReturn},
			{"total effect equals active return", r.totalSimple, r.activeReturn},
		}
		for _, check := range checks {
			if !common.AreNear(check.a, check.b, common.ToleranceLow) {
				return fmt.Errorf("%w: subperiod %d: %s (%f != %f)",
					ErrArithmeticIdentity, idx, check.name, check.a, check.b)
			}
		}
	}
	return nil
}

// auditOverallRow verifies that the overall row reconciles: on each side the
// compounded return, the summed smoothed contributions and the final
// cumulative values all agree, and the active return equals both the summed
// smoothed total effect and its cumulative counterpart
func (attr *Attribution) auditOverallRow() error {
	overall := attr.overall

	checks := []struct {
		name string
		a, b float64
	}{
		{"overall portfolio return equals smoothed portfolio contributions", overall.portfolioReturn, overall.portfolioContribSmoothed},
		{"overall portfolio return equals final cumulative portfolio return", overall.portfolioReturn, overall.cumPortfolioReturn},
		{"overall portfolio return equals final cumulative portfolio contribution", overall.portfolioReturn, overall.cumPortfolioContrib},
		{"overall benchmark return equals smoothed benchmark contributions", overall.benchmarkReturn, overall.benchmarkContribSmoothed},
		{"overall benchmark return equals final cumulative benchmark return", overall.benchmarkReturn, overall.cumBenchmarkReturn},
		{"overall benchmark return equals final cumulative benchmark contribution", overall.benchmarkReturn, overall.cumBenchmarkContrib},
		{"overall active return equals smoothed active contributions", overall.activeReturn, overall.activeContribSmoothed},
		{"overall active return equals smoothed total effect", overall.activeReturn, overall.totalSmoothed},
		{"overall active return equals final cumulative active return", overall.activeReturn, overall.cumActiveReturn},
		{"overall active return equals final cumulative active contribution", overall.activeReturn, overall.cumActiveContrib},
		{"overall active return equals final cumulative total effect", overall.activeReturn, overall.cumTotal},
		{"smoothed allocation equals final cumulative allocation", overall.allocationSmoothed, overall.cumAllocation},
		{"smoothed selection equals final cumulative selection", overall.selectionSmoothed, overall.cumSelection},
	}
	for _, check := range checks {
		if !common.AreNear(check.a, check.b, common.ToleranceLow) {
			return fmt.Errorf("%w: overall row: %s (%f != %f)",
				ErrArithmeticIdentity, check.name, check.a, check.b)
		}
	}
	return nil
}

// auditVerticalSums verifies that summing each smoothed column down the
// subperiod table reproduces the overall row, both at the portfolio level
// and per asset
func (attr *Attribution) auditVerticalSums() error {
	var portfolioContrib, benchmarkContrib, allocation, selection float64
	for _, r := range attr.rows {
		portfolioContrib += r.portfolioContribSmoothed
		benchmarkContrib += r.benchmarkContribSmoothed
		allocation += r.allocationSmoothed
		selection += r.selectionSmoothed
	}

	overall := attr.overall
	checks := []struct {
		name string
		a, b float64
	}{
		{"smoothed portfolio contributions", portfolioContrib, overall.portfolioContribSmoothed},
		{"smoothed benchmark contributions", benchmarkContrib, overall.benchmarkContribSmoothed},
		{"smoothed allocation", allocation, overall.allocationSmoothed},
		{"smoothed selection", selection, overall.selectionSmoothed},
	}
	for _, check := range checks {
		if !common.AreNear(check.a, check.b, common.ToleranceMedium) {
			return fmt.Errorf("%w: vertical sum of %s does not match overall row (%f != %f)",
				ErrArithmeticIdentity, check.name, check.a, check.b)
		}
	}

	for _, identifier := range attr.identifiers {
		var pContrib, bContrib, alloc, sel float64
		for _, r := range attr.rows {
			metrics := r.assets[identifier]
			pContrib += metrics.portfolioContribSmoothed
			bContrib += metrics.benchmarkContribSmoothed
			alloc += metrics.allocationSmoothed
			sel += metrics.selectionSmoothed
		}

		overallMetrics := overall.assets[identifier]
		assetChecks := []struct {
			name string
			a, b float64
		}{
			{"smoothed portfolio contribution", pContrib, overallMetrics.portfolioContribSmoothed},
			{"smoothed benchmark contribution", bContrib, overallMetrics.benchmarkContribSmoothed},
			{"smoothed allocation", alloc, overallMetrics.allocationSmoothed},
			{"smoothed selection", sel, overallMetrics.selectionSmoothed},
		}
		for _, check := range assetChecks {
			if !common.AreNear(check.a, check.b, common.ToleranceMedium) {
				return fmt.Errorf("%w: asset %s: vertical sum of %s does not match overall row (%f != %f)",
					ErrArithmeticIdentity, identifier, check.name, check.a, check.b)
			}
		}
	}

	return nil
}

// AuditAttributions audits each attribution individually and then
// cross-validates that all portfolio sides (and all benchmark sides) were
// built from the same underlying data. This is the check to run when the same
// portfolio is attributed under several classifications side by side.
func AuditAttributions(attributions ...*Attribution) error {
	portfolios := make([]*performance.Performance, 0, len(attributions))
	benchmarks := make([]*performance.Performance, 0, len(attributions))

	for _, attr := range attributions {
		if err := attr.Audit(); err != nil {
			return err
		}
		portfolios = append(portfolios, attr.Portfolio)
		benchmarks = append(benchmarks, attr.Benchmark)
	}

	if err := performance.Audit(portfolios...); err != nil {
		return err
	}
	return performance.Audit(benchmarks...)
}
