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

// Package riskstats computes ex-post risk and risk-adjusted return statistics
// for a portfolio/benchmark pair of periodic return series. All statistics
// are computed once in the constructor; the instance is immutable thereafter.
package riskstats

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/penny-vault/pv-attribution/frequency"
	"github.com/penny-vault/pv-attribution/performance"
	"github.com/penny-vault/pv-attribution/tabular"
)

var (
	ErrInvalidFrequency    = errors.New("frequency must be monthly, quarterly or yearly")
	ErrInsufficientReturns = errors.New("at least 2 returns are required")
	ErrLengthMismatch      = errors.New("portfolio and benchmark return series must have the same length")
	ErrNaNReturn           = errors.New("return series must not contain NaN values")
)

// Statistic names a computed risk statistic. Values are arranged in display
// order.
type Statistic string

const (
	Range                   Statistic = "Range"
	StdDev                  Statistic = "Standard Deviation"
	StdDevAnnualized        Statistic = "Annualized Standard Deviation"
	DownsideProbability     Statistic = "Downside Probability"
	ExpectedDownsideValue   Statistic = "Expected Downside Value"
	DownsideDeviation       Statistic = "Downside Deviation"
	DownsideDevAnnualized   Statistic = "Annualized Downside Deviation"
	ValueAtRisk             Statistic = "Value At Risk (VAR)"
	Correlation             Statistic = "Correlation"
	RSquared                Statistic = "R-Squared"
	TrackingError           Statistic = "Tracking Error"
	TrackingErrAnnualized   Statistic = "Annualized Tracking Error"
	SharpeRatio             Statistic = "Sharpe Ratio"
	SharpeRatioAnnualized   Statistic = "Annualized Sharpe Ratio"
	SortinoRatio            Statistic = "Sortino Ratio"
	SortinoRatioAnnualized  Statistic = "Annualized Sortino Ratio"
	InformationRatio        Statistic = "Information Ratio"
	MSquared                Statistic = "M_Squared"
	TreynorRatio            Statistic = "Treynor Ratio"
	Beta                    Statistic = "Beta"
	Alpha                   Statistic = "Alpha"
	AlphaAnnualized         Statistic = "Annualized Alpha"
	JensensAlpha            Statistic = "Jensens Alpha"
	JensensAlphaAnnualized  Statistic = "Annualized Jensens Alpha"
)

// Side selects the portfolio or benchmark column of the statistic table
type Side int

const (
	Portfolio Side = iota
	Benchmark
)

// statisticOrder is the display order of the statistic table; categories is
// the parallel presentation grouping
var statisticOrder = []Statistic{
	Range, StdDev, StdDevAnnualized,
	DownsideProbability, ExpectedDownsideValue, DownsideDeviation, DownsideDevAnnualized, ValueAtRisk,
	Correlation, RSquared, TrackingError, TrackingErrAnnualized,
	SharpeRatio, SharpeRatioAnnualized, SortinoRatio, SortinoRatioAnnualized, InformationRatio, MSquared, TreynorRatio,
	Beta, Alpha, AlphaAnnualized, JensensAlpha, JensensAlphaAnnualized,
}

var categories = map[Statistic]string{
	Range:                  "Absolute Risk",
	StdDev:                 "Absolute Risk",
	StdDevAnnualized:       "Absolute Risk",
	DownsideProbability:    "Downside Risk",
	ExpectedDownsideValue:  "Downside Risk",
	DownsideDeviation:      "Downside Risk",
	DownsideDevAnnualized:  "Downside Risk",
	ValueAtRisk:            "Downside Risk",
	Correlation:            "Benchmark-Relative Risk",
	RSquared:               "Benchmark-Relative Risk",
	TrackingError:          "Benchmark-Relative Risk",
	TrackingErrAnnualized:  "Benchmark-Relative Risk",
	SharpeRatio:            "Risk-Adjusted Performance",
	SharpeRatioAnnualized:  "Risk-Adjusted Performance",
	SortinoRatio:           "Risk-Adjusted Performance",
	SortinoRatioAnnualized: "Risk-Adjusted Performance",
	InformationRatio:       "Risk-Adjusted Performance",
	MSquared:               "Risk-Adjusted Performance",
	TreynorRatio:           "Risk-Adjusted Performance",
	Beta:                   "Regression",
	Alpha:                  "Regression",
	AlphaAnnualized:        "Regression",
	JensensAlpha:           "Regression",
	JensensAlphaAnnualized: "Regression",
}

func init() {
	viper.SetDefault("riskstats.annual_minimum_acceptable_return", 0.0)
	viper.SetDefault("riskstats.annual_risk_free_rate", 0.03)
	viper.SetDefault("riskstats.confidence_level", 0.95)
	viper.SetDefault("riskstats.portfolio_value", 100_000.0)
}

// Options configures the rates used by the downside, risk-free and
// value-at-risk statistics
type Options struct {
	// AnnualMAR is the annual minimum acceptable return used by the downside
	// statistics
	AnnualMAR float64

	// AnnualRiskFreeRate is used by the Sharpe, Sortino, M_Squared, Treynor
	// and Jensen's alpha statistics
	AnnualRiskFreeRate float64

	// ConfidenceLevel for the parametric value-at-risk, e.g. 0.95
	ConfidenceLevel float64

	// PortfolioValue is the currency value the value-at-risk is stated in
	PortfolioValue float64
}

// DefaultOptions returns the configured rates, falling back to 0% MAR, 3%
// risk-free rate, 95% confidence and a 100,000 portfolio value
func DefaultOptions() Options {
	return Options{
		AnnualMAR:          viper.GetFloat64("riskstats.annual_minimum_acceptable_return"),
		AnnualRiskFreeRate: viper.GetFloat64("riskstats.annual_risk_free_rate"),
		ConfidenceLevel:    viper.GetFloat64("riskstats.confidence_level"),
		PortfolioValue:     viper.GetFloat64("riskstats.portfolio_value"),
	}
}

// RiskStatistics holds the computed statistic table for one
// portfolio/benchmark pair
type RiskStatistics struct {
	PortfolioName string
	BenchmarkName string
	Frequency     frequency.Frequency

	portfolio map[Statistic]float64
	benchmark map[Statistic]float64
}

// New validates the return series and computes every statistic. Returns must
// be stated at a real reporting frequency (monthly, quarterly or yearly);
// annualized statistics are NaN when the series is shorter than one year.
func New(portfolioReturns, benchmarkReturns []float64, freq frequency.Frequency, opts Options) (*RiskStatistics, error) {
	periodsPerYear, err := freq.PeriodsPerYear()
	if err != nil || freq == frequency.AsOftenAsPossible {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidFrequency, freq)
	}

	n := len(portfolioReturns)
	if n != len(benchmarkReturns) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, n, len(benchmarkReturns))
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientReturns, n)
	}
	for idx := 0; idx < n; idx++ {
		if math.IsNaN(portfolioReturns[idx]) || math.IsNaN(benchmarkReturns[idx]) {
			return nil, fmt.Errorf("%w: index %d", ErrNaNReturn, idx)
		}
	}

	// annualizing a series that covers less than one year is not meaningful
	annualizationCoefficient := math.NaN()
	if n >= periodsPerYear {
		annualizationCoefficient = math.Sqrt(float64(periodsPerYear))
	}

	mar := deannualize(opts.AnnualMAR, periodsPerYear)
	riskFreeRate := deannualize(opts.AnnualRiskFreeRate, periodsPerYear)

	activeReturns := make([]float64, n)
	floats.SubTo(activeReturns, portfolioReturns, benchmarkReturns)

	stats := &RiskStatistics{
		PortfolioName: "Portfolio",
		BenchmarkName: "Benchmark",
		Frequency:     freq,
		portfolio: computeSide(portfolioReturns, benchmarkReturns, activeReturns,
			mar, riskFreeRate, annualizationCoefficient, opts, true),
		benchmark: computeSide(benchmarkReturns, benchmarkReturns, activeReturns,
			mar, riskFreeRate, annualizationCoefficient, opts, false),
	}

	log.Debug().
		Int("Returns", n).
		Str("Frequency", string(freq)).
		Float64("MAR", mar).
		Float64("RiskFreeRate", riskFreeRate).
		Msg("computed risk statistics")

	return stats, nil
}

// NewFromPerformances computes the statistics from the subperiod total
// return series of a portfolio/benchmark pair, labeling the table with the
// performance names
func NewFromPerformances(portfolio, benchmark *performance.Performance, freq frequency.Frequency, opts Options) (*RiskStatistics, error) {
	stats, err := New(portfolio.TotalReturns(), benchmark.TotalReturns(), freq, opts)
	if err != nil {
		return nil, err
	}
	stats.PortfolioName = portfolio.Name
	stats.BenchmarkName = benchmark.Name
	return stats, nil
}

// computeSide fills the statistic values for one return series. The
// benchmark-relative statistics are only defined for the portfolio side; on
// the benchmark side they are NaN.
func computeSide(returns, benchmarkReturns, activeReturns []float64, mar, riskFreeRate, annualizationCoefficient float64, opts Options, isPortfolio bool) map[Statistic]float64 {
	n := len(returns)
	mean := stat.Mean(returns, nil)
	stddev := stat.PopStdDev(returns, nil)
	benchmarkMean := stat.Mean(benchmarkReturns, nil)

	// downside deviation penalizes only sub-MAR returns but averages over the
	// whole series
	var downsideSumSquares, downsideSum float64
	downsideCount := 0
	for _, r := range returns {
		if r < mar {
			shortfall := r - mar
			downsideSumSquares += shortfall * shortfall
			downsideSum += shortfall
			downsideCount++
		}
	}
	downsideDeviation := math.Sqrt(downsideSumSquares / float64(n))

	excessMean, sharpeRatio, sortinoRatio := riskFreeRatios(returns, riskFreeRate)

	trackingError := math.NaN()
	beta := math.NaN()
	alpha := math.NaN()
	correlation := math.NaN()
	jensensAlpha := math.NaN()
	informationRatio := math.NaN()
	mSquared := math.NaN()
	treynorRatio := math.NaN()

	if isPortfolio {
		trackingError = stat.PopStdDev(activeReturns, nil)

		// sample covariance over population benchmark variance
		covariance := stat.Covariance(returns, benchmarkReturns, nil)
		beta = covariance / stat.PopVariance(benchmarkReturns, nil)

		alpha = mean - beta*benchmarkMean
		correlation = stat.Correlation(returns, benchmarkReturns, nil)
		jensensAlpha = excessMean - beta*(benchmarkMean-riskFreeRate)

		// a portfolio that exactly tracks its benchmark has zero tracking
		// error; report infinite information ratio rather than 0/0
		if trackingError == 0 {
			informationRatio = math.Inf(1)
		} else {
			informationRatio = stat.Mean(activeReturns, nil) / trackingError
		}

		mSquared = sharpeRatio*stat.PopStdDev(benchmarkReturns, nil) + riskFreeRate
		treynorRatio = excessMean / beta
	}

	return map[Statistic]float64{
		Range:                  floats.Max(returns) - floats.Min(returns),
		StdDev:                 stddev,
		StdDevAnnualized:       annualizationCoefficient * stddev,
		DownsideProbability:    float64(downsideCount) / float64(n),
		ExpectedDownsideValue:  downsideSum / float64(n),
		DownsideDeviation:      downsideDeviation,
		DownsideDevAnnualized:  annualizationCoefficient * downsideDeviation,
		ValueAtRisk:            parametricVaR(mean, stddev, opts.ConfidenceLevel, opts.PortfolioValue),
		Correlation:            correlation,
		RSquared:               correlation * correlation,
		TrackingError:          trackingError,
		TrackingErrAnnualized:  annualizationCoefficient * trackingError,
		SharpeRatio:            sharpeRatio,
		SharpeRatioAnnualized:  annualizationCoefficient * sharpeRatio,
		SortinoRatio:           sortinoRatio,
		SortinoRatioAnnualized: annualizationCoefficient * sortinoRatio,
		InformationRatio:       informationRatio,
		MSquared:               mSquared,
		TreynorRatio:           treynorRatio,
		Beta:                   beta,
		Alpha:                  alpha,
		AlphaAnnualized:        annualizationCoefficient * alpha,
		JensensAlpha:           jensensAlpha,
		JensensAlphaAnnualized: annualizationCoefficient * jensensAlpha,
	}
}

// riskFreeRatios computes the mean excess return over the risk-free rate and
// the Sharpe and Sortino ratios. The risk-free rate is constant across
// periods so the excess-return standard deviation equals that of the raw
// returns. Sortino uses the standard deviation of only the negative excess
// returns; when there are none the downside risk is zero and the ratio is
// reported as +Inf.
func riskFreeRatios(returns []float64, riskFreeRate float64) (excessMean, sharpeRatio, sortinoRatio float64) {
	excess := make([]float64, len(returns))
	for idx, r := range returns {
		excess[idx] = r - riskFreeRate
	}

	excessMean = stat.Mean(excess, nil)
	sharpeRatio = excessMean / stat.PopStdDev(excess, nil)

	downside := make([]float64, 0, len(excess))
	for _, e := range excess {
		if e < 0 {
			downside = append(downside, e)
		}
	}

	downsideStdDev := 0.0
	if len(downside) > 0 {
		downsideStdDev = stat.PopStdDev(downside, nil)
	}
	if downsideStdDev == 0 {
		sortinoRatio = math.Inf(1)
	} else {
		sortinoRatio = excessMean / downsideStdDev
	}

	return excessMean, sharpeRatio, sortinoRatio
}

// deannualize converts an annual rate to the equivalent per-period rate by
// inverse compounding. Dividing by the period count is a pre-computer
// shortcut found in older literature; this is the exact formula.
func deannualize(annualReturn float64, periodsPerYear int) float64 {
	return math.Pow(1+annualReturn, 1/float64(periodsPerYear)) - 1
}

// parametricVaR calculates parametric value-at-risk under a normal-returns
// assumption, reported as an absolute currency amount
func parametricVaR(mean, stddev, confidenceLevel, portfolioValue float64) float64 {
	zScore := distuv.UnitNormal.Quantile(1 - confidenceLevel)
	return math.Abs(portfolioValue * (mean - zScore*stddev))
}

// Value returns the named statistic for the requested side
func (rs *RiskStatistics) Value(statistic Statistic, side Side) float64 {
	if side == Portfolio {
		return rs.portfolio[statistic]
	}
	return rs.benchmark[statistic]
}

// Statistics returns the statistic names in display order
func Statistics() []Statistic {
	order := make([]Statistic, len(statisticOrder))
	copy(order, statisticOrder)
	return order
}

// Category returns the display grouping of the statistic
func Category(statistic Statistic) string {
	return categories[statistic]
}

// Table materializes the statistic table: one row per statistic with
// portfolio, benchmark, difference and category columns
func (rs *RiskStatistics) Table() *tabular.Table {
	table := tabular.New("Statistic", rs.PortfolioName, rs.BenchmarkName, "Difference", "Category")
	table.Title = fmt.Sprintf("%s vs %s", rs.PortfolioName, rs.BenchmarkName)
	table.Subtitle = fmt.Sprintf("Risk Statistics: %s", rs.Frequency)

	for _, statistic := range statisticOrder {
		portfolioValue := rs.portfolio[statistic]
		benchmarkValue := rs.benchmark[statistic]
		table.AddRow(
			tabular.String(string(statistic)),
			tabular.Float(portfolioValue),
			tabular.Float(benchmarkValue),
			tabular.Float(portfolioValue-benchmarkValue),
			tabular.String(categories[statistic]),
		)
	}

	return table
}
