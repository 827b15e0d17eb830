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

package tabular_test

import (
	"math"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-attribution/tabular"
)

var _ = Describe("When building a table", func() {
	var table *tabular.Table

	BeforeEach(func() {
		table = tabular.New("Date", "Name", "Value")
		table.AddRow(
			tabular.Date(time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)),
			tabular.String("acme"),
			tabular.Float(0.0125),
		)
		table.AddRow(
			tabular.Date(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)),
			tabular.String("globex"),
			tabular.Float(-0.02),
		)
	})

	It("tracks the number of rows", func() {
		Expect(table.Len()).To(Equal(2))
	})

	It("finds columns by name", func() {
		Expect(table.ColIndex("Name")).To(Equal(1))
		Expect(table.ColIndex("Missing")).To(Equal(-1))
	})

	It("extracts numeric columns with NaN for non-numeric cells", func() {
		vals := table.Col("Value")
		Expect(vals).To(Equal([]float64{0.0125, -0.02}))

		names := table.Col("Name")
		Expect(math.IsNaN(names[0])).To(BeTrue())
	})

	It("converts NaN floats to NA cells", func() {
		cell := tabular.Float(math.NaN())
		Expect(cell.IsNA()).To(BeTrue())
		Expect(cell.Format(4)).To(Equal(""))
	})

	It("serializes to csv with the requested precision", func() {
		sb := &strings.Builder{}
		Expect(table.WriteCSV(sb, 4)).To(Succeed())

		lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(Equal("Date,Name,Value"))
		Expect(lines[1]).To(Equal("2024-01-31,acme,0.0125"))
	})

	It("serializes to json with NA encoded as null", func() {
		table.AddRow(tabular.NA(), tabular.String("x"), tabular.Float(math.NaN()))

		data, err := table.MarshalJSON()
		Expect(err).To(BeNil())

		encoded := string(data)
		Expect(encoded).To(ContainSubstring(`"columns":["Date","Name","Value"]`))
		Expect(encoded).To(ContainSubstring(`[null,"x",null]`))
	})
})

var _ = Describe("When rendering a table", func() {
	It("renders a placeholder for an empty table", func() {
		out, err := tabular.New("A").Render()
		Expect(err).To(BeNil())
		Expect(out).To(Equal("<NO DATA>"))
	})

	It("includes the title lines and the row count footer", func() {
		table := tabular.New("A", "B")
		table.Title = "My Table"
		table.AddRow(tabular.Float(1), tabular.Float(2))

		out, err := table.Render()
		Expect(err).To(BeNil())
		Expect(out).To(ContainSubstring("My Table"))
		Expect(out).To(ContainSubstring("Num Rows"))
	})

	It("fails when the table exceeds the render limit", func() {
		table := tabular.New("A")
		for idx := 0; idx <= tabular.MaxRenderRows; idx++ {
			table.AddRow(tabular.Float(float64(idx)))
		}

		_, err := table.Render()
		Expect(err).To(MatchError(tabular.ErrTooManyRows))
	})

	It("renders a table at exactly the limit", func() {
		table := tabular.New("A")
		for idx := 0; idx < tabular.MaxRenderRows; idx++ {
			table.AddRow(tabular.Float(float64(idx)))
		}

		_, err := table.Render()
		Expect(err).To(BeNil())
	})
})
