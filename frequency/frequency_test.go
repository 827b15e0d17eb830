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

package frequency_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-attribution/frequency"
)

var _ = Describe("When querying periods per year", func() {
	It("returns 12 for monthly", func() {
		n, err := frequency.Monthly.PeriodsPerYear()
		Expect(err).To(BeNil())
		Expect(n).To(Equal(12))
	})

	It("returns 4 for quarterly", func() {
		n, err := frequency.Quarterly.PeriodsPerYear()
		Expect(err).To(BeNil())
		Expect(n).To(Equal(4))
	})

	It("returns 1 for yearly", func() {
		n, err := frequency.Yearly.PeriodsPerYear()
		Expect(err).To(BeNil())
		Expect(n).To(Equal(1))
	})

	It("fails for the native frequency", func() {
		_, err := frequency.AsOftenAsPossible.PeriodsPerYear()
		Expect(err).To(MatchError(frequency.ErrUndefinedPeriodsPerYear))
	})
})

var _ = Describe("When matching dates to period boundaries", func() {
	It("matches any date for the native frequency", func() {
		Expect(frequency.AsOftenAsPossible.DateMatches(
			time.Date(2024, time.May, 7, 0, 0, 0, 0, time.UTC))).To(BeTrue())
	})

	It("matches month ends for monthly", func() {
		Expect(frequency.Monthly.DateMatches(
			time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC))).To(BeTrue())
		Expect(frequency.Monthly.DateMatches(
			time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC))).To(BeFalse())
		Expect(frequency.Monthly.DateMatches(
			time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC))).To(BeTrue())
	})

	It("matches only quarter-end month ends for quarterly", func() {
		Expect(frequency.Quarterly.DateMatches(
			time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))).To(BeTrue())
		Expect(frequency.Quarterly.DateMatches(
			time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC))).To(BeFalse())
	})

	It("matches only December 31 for yearly", func() {
		Expect(frequency.Yearly.DateMatches(
			time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC))).To(BeTrue())
		Expect(frequency.Yearly.DateMatches(
			time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))).To(BeFalse())
	})
})
