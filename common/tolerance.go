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

package common

import "math"

// Tolerances for floating-point comparisons. Audit checks that compare a
// vertical sum against a compounded value accumulate error over many rows and
// use the medium tolerance; scalar identities use the high tolerance.
const (
	ToleranceLow    = 5e-8
	ToleranceMedium = 5e-10
	ToleranceHigh   = 5e-13
)

// DateFormat is the yyyy-mm-dd format used everywhere dates are displayed.
const DateFormat = "2006-01-02"

// AreNear reports whether f1 and f2 are within tolerance of each other.
// NaN compares near NaN so that "not applicable" cells audit cleanly.
func AreNear(f1, f2, tolerance float64) bool {
	if math.IsNaN(f1) && math.IsNaN(f2) {
		return true
	}
	return math.Abs(f1-f2) < tolerance
}

// NearZero reports whether f is within tolerance of zero.
func NearZero(f, tolerance float64) bool {
	return AreNear(f, 0, tolerance)
}

// RoundTo rounds f to the given number of decimal places.
func RoundTo(f float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(f*shift) / shift
}
