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

package linking_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-attribution/linking"
)

var _ = Describe("When computing smoothing coefficients", func() {
	It("returns exactly 1.0 for a zero return", func() {
		c, err := linking.SmoothingCoefficient(0)
		Expect(err).To(BeNil())
		Expect(c).To(Equal(1.0))
	})

	It("returns ln(1+r)/r for a non-zero return", func() {
		c, err := linking.SmoothingCoefficient(0.10)
		Expect(err).To(BeNil())
		Expect(c).To(BeNumerically("~", math.Log1p(0.10)/0.10, 1e-15))
	})

	It("fails for a return of -100%", func() {
		_, err := linking.SmoothingCoefficient(-1.0)
		Expect(err).To(MatchError(linking.ErrUndefinedReturn))
	})

	It("fails for a return below -100%", func() {
		_, err := linking.SmoothingCoefficient(-1.5)
		Expect(err).To(MatchError(linking.ErrUndefinedReturn))
	})

	It("fails series computation when any return is undefined", func() {
		_, err := linking.SmoothingCoefficients([]float64{0.02, -1.0, 0.01})
		Expect(err).To(MatchError(linking.ErrUndefinedReturn))
	})
})

var _ = Describe("When computing linking coefficients", func() {
	It("reconciles smoothed returns to the compounded overall return", func() {
		returns := []float64{0.05, -0.02, 0.03, 0.01}

		overall := 1.0
		for _, r := range returns {
			overall *= 1.0 + r
		}
		overall -= 1.0

		coefficients, err := linking.LinkingCoefficients(overall, returns)
		Expect(err).To(BeNil())

		sum := 0.0
		for idx, r := range returns {
			sum += coefficients[idx] * r
		}
		Expect(sum).To(BeNumerically("~", overall, 5e-10))
	})

	It("returns all ones when every return is zero", func() {
		coefficients, err := linking.LinkingCoefficients(0, []float64{0, 0, 0})
		Expect(err).To(BeNil())
		Expect(coefficients).To(Equal([]float64{1, 1, 1}))
	})

	It("computes elementwise ratios for paired series", func() {
		coefficients, err := linking.LinkingCoefficientSeries(
			[]float64{0.10, 0.20}, []float64{0.05, 0.10})
		Expect(err).To(BeNil())
		Expect(coefficients).To(HaveLen(2))
		Expect(coefficients[0]).To(BeNumerically("~",
			(math.Log1p(0.05)/0.05)/(math.Log1p(0.10)/0.10), 1e-15))
	})
})

var _ = Describe("When computing Carino coefficients", func() {
	It("computes the log-difference ratio for distinct returns", func() {
		c, err := linking.CarinoCoefficient(0.10, 0.05)
		Expect(err).To(BeNil())
		Expect(c).To(BeNumerically("~",
			(math.Log1p(0.10)-math.Log1p(0.05))/0.05, 1e-15))
	})

	It("is positive and finite for valid return pairs", func() {
		pairs := [][2]float64{{0.05, 0.03}, {-0.5, 0.3}, {0.0, 0.0}, {2.0, -0.9}}
		for _, pair := range pairs {
			c, err := linking.CarinoCoefficient(pair[0], pair[1])
			Expect(err).To(BeNil())
			Expect(c).To(BeNumerically(">", 0))
			Expect(math.IsInf(c, 0)).To(BeFalse())
		}
	})

	It("uses the limit 1/(1+p) when the returns are equal", func() {
		c, err := linking.CarinoCoefficient(0.10, 0.10)
		Expect(err).To(BeNil())
		Expect(c).To(Equal(1.0 / 1.10))
	})

	It("uses the limit when the returns differ by less than the tolerance", func() {
		c, err := linking.CarinoCoefficient(0.10, 0.10+1e-14)
		Expect(err).To(BeNil())
		Expect(c).To(BeNumerically("~", 1.0/1.10, 1e-12))
	})

	It("is continuous across the near-equal branch", func() {
		// the branch value and the formula value must agree where they meet
		limit, err := linking.CarinoCoefficient(0.10, 0.10)
		Expect(err).To(BeNil())
		nearby, err := linking.CarinoCoefficient(0.10, 0.10+1e-9)
		Expect(err).To(BeNil())
		Expect(nearby).To(BeNumerically("~", limit, 1e-8))
	})

	It("fails when either return is -100% or worse", func() {
		_, err := linking.CarinoCoefficient(-1.0, 0.05)
		Expect(err).To(MatchError(linking.ErrUndefinedReturn))

		_, err = linking.CarinoCoefficient(0.05, -1.2)
		Expect(err).To(MatchError(linking.ErrUndefinedReturn))
	})
})
