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

package frequency

import (
	"errors"
	"time"
)

// Frequency defines the reporting period of a return series
type Frequency string

const (
	// AsOftenAsPossible reports at the native frequency of the source data.
	// It has no defined number of periods per year.
	AsOftenAsPossible Frequency = "Periodic"
	Monthly           Frequency = "Monthly"
	Quarterly         Frequency = "Quarterly"
	Yearly            Frequency = "Yearly"
)

var ErrUndefinedPeriodsPerYear = errors.New("frequency has no defined periods per year")

// PeriodsPerYear returns the number of reporting periods in a calendar year
func (freq Frequency) PeriodsPerYear() (int, error) {
	switch freq {
	case Monthly:
		return 12, nil
	case Quarterly:
		return 4, nil
	case Yearly:
		return 1, nil
	default:
		return 0, ErrUndefinedPeriodsPerYear
	}
}

// DateMatches reports whether date falls on a period boundary for the
// frequency; only calendar month/quarter/year ends are supported
func (freq Frequency) DateMatches(date time.Time) bool {
	switch freq {
	case AsOftenAsPossible:
		return true
	case Monthly:
		return isMonthEnd(date)
	case Quarterly:
		switch date.Month() {
		case time.March, time.June, time.September, time.December:
			return isMonthEnd(date)
		}
		return false
	case Yearly:
		return date.Month() == time.December && isMonthEnd(date)
	}
	return false
}

func isMonthEnd(date time.Time) bool {
	if date.Day() < 28 {
		return false
	}
	return date.AddDate(0, 0, 1).Month() != date.Month()
}
