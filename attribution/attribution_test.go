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

package attribution_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-attribution/attribution"
	"github.com/penny-vault/pv-attribution/classification"
	"github.com/penny-vault/pv-attribution/frequency"
	"github.com/penny-vault/pv-attribution/performance"
)

// buildPerformance assembles a Performance from per-asset weight and return
// matrices indexed [asset][period]; contributions and period totals are
// derived so the input satisfies the contribution identity exactly
func buildPerformance(name string, identifiers []string, weights, returns [][]float64) *performance.Performance {
	numPeriods := len(weights[0])

	periods := make([]performance.Period, numPeriods)
	begin := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for t := 0; t < numPeriods; t++ {
		periods[t] = performance.Period{Begin: begin, End: begin.AddDate(0, 1, -1)}
		begin = begin.AddDate(0, 1, 0)
	}

	assets := make(map[string]performance.AssetSeries, len(identifiers))
	for i, identifier := range identifiers {
		contribs := make([]float64, numPeriods)
		for t := 0; t < numPeriods; t++ {
			contribs[t] = weights[i][t] * returns[i][t]
			periods[t].TotalReturn += contribs[t]
		}
		assets[identifier] = performance.AssetSeries{
			Returns:       returns[i],
			Weights:       weights[i],
			Contributions: contribs,
		}
	}

	perf, err := performance.New(name, periods, assets)
	Expect(err).To(BeNil())
	return perf
}

// twoAssetFixture is a hand-checkable 2 asset x 3 subperiod case. The second
// subperiod has identical portfolio and benchmark totals, exercising the
// near-equal branch of the Carino coefficient.
func twoAssetFixture() (*performance.Performance, *performance.Performance) {
	portfolio := buildPerformance("Portfolio", []string{"alpha", "beta"},
		[][]float64{
			{0.6, 0.5, 0.4},
			{0.4, 0.5, 0.6},
		},
		[][]float64{
			{0.02, -0.01, 0.03},
			{0.01, 0.02, -0.02},
		})

	benchmark := buildPerformance("Benchmark", []string{"alpha", "beta"},
		[][]float64{
			{0.5, 0.5, 0.5},
			{0.5, 0.5, 0.5},
		},
		[][]float64{
			{0.015, 0.0, 0.02},
			{0.005, 0.01, -0.01},
		})

	return portfolio, benchmark
}

var _ = Describe("When computing an attribution", func() {
	var attr *attribution.Attribution

	BeforeEach(func() {
		portfolio, benchmark := twoAssetFixture()

		var err error
		attr, err = attribution.New(portfolio, benchmark, "", nil, frequency.Monthly)
		Expect(err).To(BeNil())
	})

	It("derives the default classification from the portfolio", func() {
		Expect(attr.Classification.Name).To(Equal(attribution.DefaultClassificationName))
		Expect(attr.Classification.DisplayName("alpha")).To(Equal("ALPHA"))
	})

	It("passes its own audit", func() {
		Expect(attr.Audit()).To(Succeed())
	})

	It("sums per-asset effects to the subperiod active return", func() {
		table, err := attr.Table(attribution.ViewSubperiodAttribution)
		Expect(err).To(BeNil())
		Expect(table.Len()).To(Equal(6))

		activeReturns := []float64{0.006, 0.0, -0.005}
		totals := table.Col(attribution.ColTotalEffect)
		for t, want := range activeReturns {
			got := totals[2*t] + totals[2*t+1]
			Expect(got).To(BeNumerically("~", want, 5e-10))
		}
	})

	It("computes Brinson-Fachler effects per asset", func() {
		table, err := attr.Table(attribution.ViewSubperiodAttribution)
		Expect(err).To(BeNil())

		// first subperiod, asset alpha:
		// allocation = (0.015 - 0.01) * (0.6 - 0.5)
		// selection  = 0.6 * (0.02 - 0.015)
		allocations := table.Col(attribution.ColAllocationEffect)
		selections := table.Col(attribution.ColSelectionEffect)
		Expect(allocations[0]).To(BeNumerically("~", 0.0005, 1e-15))
		Expect(selections[0]).To(BeNumerically("~", 0.003, 1e-15))

		totals := table.Col(attribution.ColTotalEffect)
		for idx := range totals {
			Expect(totals[idx]).To(BeNumerically("~", allocations[idx]+selections[idx], 1e-7))
		}
	})

	It("reconciles smoothed effects to the compounded active return", func() {
		table, err := attr.Table(attribution.ViewOverallAttribution)
		Expect(err).To(BeNil())

		// 2 assets plus the total row
		Expect(table.Len()).To(Equal(3))

		overallActive := (1.016*1.005*1.0 - 1) - (1.01*1.005*1.005 - 1)
		totals := table.Col(attribution.ColTotalEffect)
		Expect(totals[2]).To(BeNumerically("~", overallActive, 5e-10))

		active := table.Col(attribution.ColActiveReturn)
		Expect(active[2]).To(BeNumerically("~", overallActive, 5e-10))
	})

	It("labels the overall total row", func() {
		table, err := attr.Table(attribution.ViewOverallAttribution)
		Expect(err).To(BeNil())

		lastRow := table.Rows[table.Len()-1]
		Expect(lastRow[table.ColIndex(attribution.ColClassification)].String()).To(Equal("Total"))
	})

	It("carries cumulative columns that end at the overall values", func() {
		table, err := attr.Table(attribution.ViewCumulativeAttribution)
		Expect(err).To(BeNil())

		// 3 subperiods plus the total row
		Expect(table.Len()).To(Equal(4))

		overallActive := (1.016*1.005*1.0 - 1) - (1.01*1.005*1.005 - 1)
		cumTotals := table.Col(attribution.ColCumTotal)
		Expect(cumTotals[2]).To(BeNumerically("~", overallActive, 5e-10))
		Expect(cumTotals[3]).To(BeNumerically("~", overallActive, 5e-10))

		cumActive := table.Col(attribution.ColCumActiveRet)
		Expect(cumActive[3]).To(BeNumerically("~", overallActive, 5e-10))
	})

	It("matches the summary total effect to the subperiod active return", func() {
		table, err := attr.Table(attribution.ViewSubperiodSummary)
		Expect(err).To(BeNil())

		// no total row on the summary view
		Expect(table.Len()).To(Equal(3))

		totals := table.Col(attribution.ColTotalEffect)
		active := table.Col(attribution.ColActiveReturn)
		for idx := range totals {
			Expect(totals[idx]).To(BeNumerically("~", active[idx], 5e-10))
		}
	})

	It("caches views so repeated requests return the same table", func() {
		first, err := attr.Table(attribution.ViewOverallAttribution)
		Expect(err).To(BeNil())
		second, err := attr.Table(attribution.ViewOverallAttribution)
		Expect(err).To(BeNil())
		Expect(first == second).To(BeTrue())
	})

	It("fails for an unknown view", func() {
		_, err := attr.Table(attribution.View("Bogus"))
		Expect(err).To(MatchError(attribution.ErrUnknownView))
	})

	It("upper-cases identifiers in the views", func() {
		table, err := attr.Table(attribution.ViewSubperiodAttribution)
		Expect(err).To(BeNil())
		Expect(table.Rows[0][table.ColIndex(attribution.ColClassificationID)].String()).To(Equal("ALPHA"))
	})
})

var _ = Describe("When attributing with a custom classification", func() {
	It("joins display names from the source", func() {
		portfolio, benchmark := twoAssetFixture()

		attr, err := attribution.New(portfolio, benchmark, "Sector",
			classification.Pairs{"alpha": "Energy", "beta": "Utilities"}, frequency.Monthly)
		Expect(err).To(BeNil())

		table, err := attr.Table(attribution.ViewSubperiodAttribution)
		Expect(err).To(BeNil())
		Expect(table.Rows[0][table.ColIndex(attribution.ColClassification)].String()).To(Equal("Energy"))
	})
})

var _ = Describe("When attributing a larger portfolio", func() {
	It("reconciles a 5 asset x 5 subperiod attribution", func() {
		identifiers := []string{"a", "b", "c", "d", "e"}
		numPeriods := 5

		portfolioWeights := make([][]float64, len(identifiers))
		benchmarkWeights := make([][]float64, len(identifiers))
		portfolioReturns := make([][]float64, len(identifiers))
		benchmarkReturns := make([][]float64, len(identifiers))

		// deterministic values; weights normalized per subperiod
		for i := range identifiers {
			portfolioWeights[i] = make([]float64, numPeriods)
			benchmarkWeights[i] = make([]float64, numPeriods)
			portfolioReturns[i] = make([]float64, numPeriods)
			benchmarkReturns[i] = make([]float64, numPeriods)
			for t := 0; t < numPeriods; t++ {
				portfolioWeights[i][t] = float64(1 + (i+t)%5)
				benchmarkWeights[i][t] = float64(1 + (i+2*t)%5)
				portfolioReturns[i][t] = 0.01*float64(i-2) + 0.003*float64(t%3)
				benchmarkReturns[i][t] = 0.008*float64(i-2) + 0.002*float64((t+1)%3)
			}
		}
		for t := 0; t < numPeriods; t++ {
			var pSum, bSum float64
			for i := range identifiers {
				pSum += portfolioWeights[i][t]
				bSum += benchmarkWeights[i][t]
			}
			for i := range identifiers {
				portfolioWeights[i][t] /= pSum
				benchmarkWeights[i][t] /= bSum
			}
		}

		portfolio := buildPerformance("Portfolio", identifiers, portfolioWeights, portfolioReturns)
		benchmark := buildPerformance("Benchmark", identifiers, benchmarkWeights, benchmarkReturns)

		attr, err := attribution.New(portfolio, benchmark, "", nil, frequency.Monthly)
		Expect(err).To(BeNil())
		Expect(attr.Audit()).To(Succeed())

		table, err := attr.Table(attribution.ViewOverallAttribution)
		Expect(err).To(BeNil())

		overallActive := portfolio.OverallReturn() - benchmark.OverallReturn()
		totals := table.Col(attribution.ColTotalEffect)
		Expect(totals[table.Len()-1]).To(BeNumerically("~", overallActive, 1e-9))

		// simple contributions in the subperiod view reproduce weight * return
		subperiods, err := attr.Table(attribution.ViewSubperiodAttribution)
		Expect(err).To(BeNil())
		contribs := subperiods.Col(attribution.ColPortfolioContrib)

		// rows are ordered by (subperiod, identifier); asset "a" leads each block
		for t := 0; t < numPeriods; t++ {
			want := portfolioWeights[0][t] * portfolioReturns[0][t]
			Expect(contribs[t*len(identifiers)]).To(BeNumerically("~", want, 1e-9))
		}
	})
})

var _ = Describe("When auditing attributions against each other", func() {
	It("accepts attributions built from the same underlying data", func() {
		portfolio1, benchmark1 := twoAssetFixture()
		portfolio2, benchmark2 := twoAssetFixture()

		bySecurity, err := attribution.New(portfolio1, benchmark1, "", nil, frequency.Monthly)
		Expect(err).To(BeNil())

		bySector, err := attribution.New(portfolio2, benchmark2, "Sector",
			classification.Pairs{"alpha": "Energy", "beta": "Utilities"}, frequency.Monthly)
		Expect(err).To(BeNil())

		Expect(attribution.AuditAttributions(bySecurity, bySector)).To(Succeed())
	})

	It("rejects misaligned portfolio and benchmark sides", func() {
		portfolio, _ := twoAssetFixture()
		benchmark := buildPerformance("Benchmark", []string{"alpha"},
			[][]float64{{1.0, 1.0}},
			[][]float64{{0.01, 0.02}})

		_, err := attribution.New(portfolio, benchmark, "", nil, frequency.Monthly)
		Expect(err).To(MatchError(performance.ErrCrossInstanceInconsistency))
	})
})
