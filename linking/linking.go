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

// Package linking implements the logarithmic smoothing and Carino (1999)
// linking coefficients that reconcile additive sub-period attribution to
// geometrically compounded multi-period results.
package linking

import (
	"errors"
	"fmt"
	"math"

	"github.com/penny-vault/pv-attribution/common"
)

// ErrUndefinedReturn indicates a return of -100% or worse; ln(1+r) is
// undefined there and no linking coefficient exists
var ErrUndefinedReturn = errors.New("return is less than or equal to -100%")

// SmoothingCoefficient returns the logarithmic smoothing coefficient
// ln(1+r)/r for a single return, or 1.0 when r is exactly zero
func SmoothingCoefficient(r float64) (float64, error) {
	if r <= -1.0 {
		return 0, fmt.Errorf("%w: %f", ErrUndefinedReturn, r)
	}
	if r == 0 {
		return 1.0, nil
	}
	return math.Log1p(r) / r, nil
}

// SmoothingCoefficients returns the logarithmic smoothing coefficient for
// each return in the series
func SmoothingCoefficients(returns []float64) ([]float64, error) {
	coefficients := make([]float64, len(returns))
	for idx, r := range returns {
		c, err := SmoothingCoefficient(r)
		if err != nil {
			return nil, err
		}
		coefficients[idx] = c
	}
	return coefficients, nil
}

// LinkingCoefficients returns, for each sub-period return, the ratio of its
// smoothing coefficient to the overall return's smoothing coefficient. For a
// contribution series that compounds to overallReturn, multiplying each
// simple contribution by its coefficient makes the series sum to
// overallReturn exactly.
func LinkingCoefficients(overallReturn float64, returns []float64) ([]float64, error) {
	denominator, err := SmoothingCoefficient(overallReturn)
	if err != nil {
		return nil, err
	}

	coefficients, err := SmoothingCoefficients(returns)
	if err != nil {
		return nil, err
	}

	for idx := range coefficients {
		coefficients[idx] /= denominator
	}
	return coefficients, nil
}

// LinkingCoefficientSeries returns the elementwise ratio of smoothing
// coefficients of two equal-length series. Used when the reference return
// also varies per row, e.g. smoothing a contribution against a per-asset
// consolidated return series.
func LinkingCoefficientSeries(overallReturns, returns []float64) ([]float64, error) {
	numerators, err := SmoothingCoefficients(returns)
	if err != nil {
		return nil, err
	}
	denominators, err := SmoothingCoefficients(overallReturns)
	if err != nil {
		return nil, err
	}

	for idx := range numerators {
		numerators[idx] /= denominators[idx]
	}
	return numerators, nil
}

// CarinoCoefficient returns the Carino linking coefficient
// (ln(1+p) - ln(1+b)) / (p - b) for a portfolio/benchmark return pair.
// When the two returns are nearly identical the formula degenerates to a
// near-zero denominator, so the limit 1/(1+p) is returned instead.
func CarinoCoefficient(portfolioReturn, benchmarkReturn float64) (float64, error) {
	if portfolioReturn <= -1.0 {
		return 0, fmt.Errorf("%w: portfolio return %f", ErrUndefinedReturn, portfolioReturn)
	}
	if benchmarkReturn <= -1.0 {
		return 0, fmt.Errorf("%w: benchmark return %f", ErrUndefinedReturn, benchmarkReturn)
	}

	returnDifference := portfolioReturn - benchmarkReturn
	if common.NearZero(returnDifference, common.ToleranceHigh) {
		return 1.0 / (1.0 + portfolioReturn), nil
	}

	return (math.Log1p(portfolioReturn) - math.Log1p(benchmarkReturn)) / returnDifference, nil
}
