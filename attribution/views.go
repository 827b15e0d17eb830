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
	"strings"

	"github.com/penny-vault/pv-attribution/tabular"
)

// View names a materialized projection of the attribution tables
type View string

const (
	// ViewSubperiodAttribution is one row per (subperiod, classification
	// item) with simple returns, weights, contributions and effects
	ViewSubperiodAttribution View = "Sub-Period Attribution"

	// ViewOverallAttribution is one row per classification item for the
	// whole period (smoothed values), plus a total row
	ViewOverallAttribution View = "Overall Attribution"

	// ViewCumulativeAttribution is the portfolio-level subperiod table with
	// smoothed and cumulative columns, plus a total row
	ViewCumulativeAttribution View = "Cumulative Attribution"

	// ViewSubperiodSummary is the portfolio-level subperiod table restricted
	// to simple columns, with no total row
	ViewSubperiodSummary View = "Sub-Period Summary"
)

var ErrUnknownView = errors.New("unknown view")

// Column names shared by the views. The same contribution/effect names are
// used for simple and smoothed values; which one a view carries is part of
// the view's definition.
const (
	ColBeginningDate     = "Beginning Date"
	ColEndingDate        = "Ending Date"
	ColClassificationID  = "Classification Identifier"
	ColClassification    = "Classification Name"
	ColPortfolioReturn   = "Portfolio Return"
	ColPortfolioWeight   = "Portfolio Weight"
	ColPortfolioContrib  = "Portfolio Contribution"
	ColBenchmarkReturn   = "Benchmark Return"
	ColBenchmarkWeight   = "Benchmark Weight"
	ColBenchmarkContrib  = "Benchmark Contribution"
	ColActiveReturn      = "Active Return"
	ColActiveWeight      = "Active Weight"
	ColActiveContrib     = "Active Contribution"
	ColAllocationEffect  = "Allocation Effect"
	ColSelectionEffect   = "Selection Effect"
	ColTotalEffect       = "Total Effect"
	ColCumPortfolioRet   = "Cumulative Portfolio Return"
	ColCumBenchmarkRet   = "Cumulative Benchmark Return"
	ColCumActiveRet      = "Cumulative Active Return"
	ColCumPortfolioCon   = "Cumulative Portfolio Contribution"
	ColCumBenchmarkCon   = "Cumulative Benchmark Contribution"
	ColCumActiveCon      = "Cumulative Active Contribution"
	ColCumAllocation     = "Cumulative Allocation Effect"
	ColCumSelection      = "Cumulative Selection Effect"
	ColCumTotal          = "Cumulative Total Effect"
	totalRowLabel        = "Total"
)

// Table materializes the requested view. Views are computed on first request
// and cached for the instance's lifetime; repeated requests return the same
// table. Recomputation on a concurrent first access is idempotent, so the
// cache needs no locking.
func (attr *Attribution) Table(view View) (*tabular.Table, error) {
	if table, ok := attr.views[view]; ok {
		return table, nil
	}

	var table *tabular.Table
	switch view {
	case ViewSubperiodAttribution:
		table = attr.buildSubperiodAttribution()
	case ViewOverallAttribution:
		table = attr.buildOverallAttribution()
	case ViewCumulativeAttribution:
		table = attr.buildCumulativeAttribution()
	case ViewSubperiodSummary:
		table = attr.buildSubperiodSummary()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownView, view)
	}

	table.Title, table.Subtitle = attr.Title(view)
	attr.views[view] = table
	return table, nil
}

// buildSubperiodAttribution unpivots the per-asset columns into long rows
// keyed by (date range, identifier), joins classification display names, and
// computes active columns as elementwise differences. Rows are ordered by
// (beginning date, identifier). Instantaneous rows do not sum meaningfully,
// so there is no total row.
func (attr *Attribution) buildSubperiodAttribution() *tabular.Table {
	table := tabular.New(
		ColBeginningDate, ColEndingDate, ColClassificationID, ColClassification,
		ColPortfolioReturn, ColPortfolioWeight, ColPortfolioContrib,
		ColBenchmarkReturn, ColBenchmarkWeight, ColBenchmarkContrib,
		ColActiveReturn, ColActiveWeight, ColActiveContrib,
		ColAllocationEffect, ColSelectionEffect, ColTotalEffect,
	)

	for periodIdx, r := range attr.rows {
		for _, identifier := range attr.identifiers {
			metrics := r.assets[identifier]
			portfolioReturn := attr.Portfolio.Returns(identifier)[periodIdx]
			portfolioWeight := attr.Portfolio.Weights(identifier)[periodIdx]
			benchmarkReturn := attr.Benchmark.Returns(identifier)[periodIdx]
			benchmarkWeight := attr.Benchmark.Weights(identifier)[periodIdx]

			table.AddRow(
				tabular.Date(r.begin),
				tabular.Date(r.end),
				tabular.String(strings.ToUpper(identifier)),
				tabular.String(attr.Classification.DisplayName(identifier)),
				tabular.Float(portfolioReturn),
				tabular.Float(portfolioWeight),
				tabular.Float(metrics.portfolioContribSimple),
				tabular.Float(benchmarkReturn),
				tabular.Float(benchmarkWeight),
				tabular.Float(metrics.benchmarkContribSimple),
				tabular.Float(portfolioReturn-benchmarkReturn),
				tabular.Float(portfolioWeight-benchmarkWeight),
				tabular.Float(metrics.portfolioContribSimple-metrics.benchmarkContribSimple),
				tabular.Float(metrics.allocationSimple),
				tabular.Float(metrics.selectionSimple),
				tabular.Float(metrics.allocationSimple+metrics.selectionSimple),
			)
		}
	}

	return table
}

// buildOverallAttribution applies the same unpivot/join/diff procedure to the
// overall row, yielding one row per classification item for the whole period
// plus a total row
func (attr *Attribution) buildOverallAttribution() *tabular.Table {
	table := tabular.New(
		ColClassificationID, ColClassification,
		ColPortfolioReturn, ColPortfolioWeight, ColPortfolioContrib,
		ColBenchmarkReturn, ColBenchmarkWeight, ColBenchmarkContrib,
		ColActiveReturn, ColActiveWeight, ColActiveContrib,
		ColAllocationEffect, ColSelectionEffect, ColTotalEffect,
	)

	var portfolioWeightSum, benchmarkWeightSum float64

	for _, identifier := range attr.identifiers {
		metrics := attr.overall.assets[identifier]
		portfolioReturn := attr.Portfolio.OverallAssetReturn(identifier)
		portfolioWeight := attr.Portfolio.AverageWeight(identifier)
		benchmarkReturn := attr.Benchmark.OverallAssetReturn(identifier)
		benchmarkWeight := attr.Benchmark.AverageWeight(identifier)

		portfolioWeightSum += portfolioWeight
		benchmarkWeightSum += benchmarkWeight

		table.AddRow(
			tabular.String(strings.ToUpper(identifier)),
			tabular.String(attr.Classification.DisplayName(identifier)),
			tabular.Float(portfolioReturn),
			tabular.Float(portfolioWeight),
			tabular.Float(metrics.portfolioContribSmoothed),
			tabular.Float(benchmarkReturn),
			tabular.Float(benchmarkWeight),
			tabular.Float(metrics.benchmarkContribSmoothed),
			tabular.Float(portfolioReturn-benchmarkReturn),
			tabular.Float(portfolioWeight-benchmarkWeight),
			tabular.Float(metrics.portfolioContribSmoothed-metrics.benchmarkContribSmoothed),
			tabular.Float(metrics.allocationSmoothed),
			tabular.Float(metrics.selectionSmoothed),
			tabular.Float(metrics.allocationSmoothed+metrics.selectionSmoothed),
		)
	}

	// total row: elementwise sums except returns, which are the compounded
	// whole-period values
	overall := attr.overall
	table.AddRow(
		tabular.String(""),
		tabular.String(totalRowLabel),
		tabular.Float(overall.portfolioReturn),
		tabular.Float(portfolioWeightSum),
		tabular.Float(overall.portfolioContribSmoothed),
		tabular.Float(overall.benchmarkReturn),
		tabular.Float(benchmarkWeightSum),
		tabular.Float(overall.benchmarkContribSmoothed),
		tabular.Float(overall.activeReturn),
		tabular.Float(portfolioWeightSum-benchmarkWeightSum),
		tabular.Float(overall.activeContribSmoothed),
		tabular.Float(overall.allocationSmoothed),
		tabular.Float(overall.selectionSmoothed),
		tabular.Float(overall.totalSmoothed),
	)

	return table
}

// buildCumulativeAttribution restricts the subperiod table to dates, returns,
// smoothed contributions/effects and their cumulative series (no
// classification breakdown), with a total row appended
func (attr *Attribution) buildCumulativeAttribution() *tabular.Table {
	table := tabular.New(
		ColBeginningDate, ColEndingDate,
		ColPortfolioReturn, ColBenchmarkReturn, ColActiveReturn,
		ColCumPortfolioRet, ColCumBenchmarkRet, ColCumActiveRet,
		ColPortfolioContrib, ColBenchmarkContrib, ColActiveContrib,
		ColCumPortfolioCon, ColCumBenchmarkCon, ColCumActiveCon,
		ColAllocationEffect, ColSelectionEffect, ColTotalEffect,
		ColCumAllocation, ColCumSelection, ColCumTotal,
	)

	for _, r := range attr.rows {
		table.AddRow(
			tabular.Date(r.begin),
			tabular.Date(r.end),
			tabular.Float(r.portfolioReturn),
			tabular.Float(r.benchmarkReturn),
			tabular.Float(r.activeReturn),
			tabular.Float(r.cumPortfolioReturn),
			tabular.Float(r.cumBenchmarkReturn),
			tabular.Float(r.cumActiveReturn),
			tabular.Float(r.portfolioContribSmoothed),
			tabular.Float(r.benchmarkContribSmoothed),
			tabular.Float(r.activeContribSmoothed),
			tabular.Float(r.cumPortfolioContrib),
			tabular.Float(r.cumBenchmarkContrib),
			tabular.Float(r.cumActiveContrib),
			tabular.Float(r.allocationSmoothed),
			tabular.Float(r.selectionSmoothed),
			tabular.Float(r.totalSmoothed),
			tabular.Float(r.cumAllocation),
			tabular.Float(r.cumSelection),
			tabular.Float(r.cumTotal),
		)
	}

	// total row: returns are the compounded whole-period values, cumulative
	// columns carry their last-subperiod values, smoothed columns sum
	overall := attr.overall
	table.AddRow(
		tabular.NA(),
		tabular.String(totalRowLabel),
		tabular.Float(overall.portfolioReturn),
		tabular.Float(overall.benchmarkReturn),
		tabular.Float(overall.activeReturn),
		tabular.Float(overall.cumPortfolioReturn),
		tabular.Float(overall.cumBenchmarkReturn),
		tabular.Float(overall.cumActiveReturn),
		tabular.Float(overall.portfolioContribSmoothed),
		tabular.Float(overall.benchmarkContribSmoothed),
		tabular.Float(overall.activeContribSmoothed),
		tabular.Float(overall.cumPortfolioContrib),
		tabular.Float(overall.cumBenchmarkContrib),
		tabular.Float(overall.cumActiveContrib),
		tabular.Float(overall.allocationSmoothed),
		tabular.Float(overall.selectionSmoothed),
		tabular.Float(overall.totalSmoothed),
		tabular.Float(overall.cumAllocation),
		tabular.Float(overall.cumSelection),
		tabular.Float(overall.cumTotal),
	)

	return table
}

// buildSubperiodSummary restricts the subperiod table to dates, returns and
// simple contribution/effect columns (no classification breakdown, no total
// row)
func (attr *Attribution) buildSubperiodSummary() *tabular.Table {
	table := tabular.New(
		ColBeginningDate, ColEndingDate,
		ColPortfolioReturn, ColBenchmarkReturn, ColActiveReturn,
		ColPortfolioContrib, ColBenchmarkContrib, ColActiveContrib,
		ColAllocationEffect, ColSelectionEffect, ColTotalEffect,
	)

	for _, r := range attr.rows {
		table.AddRow(
			tabular.Date(r.begin),
			tabular.Date(r.end),
			tabular.Float(r.portfolioReturn),
			tabular.Float(r.benchmarkReturn),
			tabular.Float(r.activeReturn),
			tabular.Float(r.portfolioContribSimple),
			tabular.Float(r.benchmarkContribSimple),
			tabular.Float(r.activeContribSimple),
			tabular.Float(r.allocationSimple),
			tabular.Float(r.selectionSimple),
			tabular.Float(r.totalSimple),
		)
	}

	return table
}
