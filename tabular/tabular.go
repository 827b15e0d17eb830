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

// Package tabular provides the cell-typed table that attribution views and
// risk statistics are materialized into. Tables are serialization-agnostic;
// ASCII, CSV and JSON renditions are provided for callers that want them.
package tabular

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"encoding/csv"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

// MaxRenderRows guards table rendering; per-row formatting cost makes very
// large tables impractical to render, so anything over this limit fails with
// ErrTooManyRows rather than stalling.
const MaxRenderRows = 500

// DefaultPrecision is the number of decimal places used for CSV and JSON output
const DefaultPrecision = 8

var ErrTooManyRows = errors.New("too many rows to render")

// Kind identifies what a Cell holds
type Kind int

const (
	KindFloat Kind = iota
	KindString
	KindDate
	KindNA
)

// Cell is a single typed value in a Table
type Cell struct {
	kind Kind
	num  float64
	str  string
	date time.Time
}

func Float(v float64) Cell {
	if math.IsNaN(v) {
		return Cell{kind: KindNA}
	}
	return Cell{kind: KindFloat, num: v}
}

func String(s string) Cell {
	return Cell{kind: KindString, str: s}
}

func Date(t time.Time) Cell {
	return Cell{kind: KindDate, date: t}
}

// NA is the "not applicable" marker used for quantities that have no meaning
// in a given row, e.g. instantaneous columns on the overall row
func NA() Cell {
	return Cell{kind: KindNA}
}

func (c Cell) Kind() Kind { return c.kind }

func (c Cell) IsNA() bool { return c.kind == KindNA }

// Float returns the numeric value of the cell; NA and non-numeric cells
// return NaN
func (c Cell) Float() float64 {
	if c.kind == KindFloat {
		return c.num
	}
	return math.NaN()
}

func (c Cell) String() string { return c.str }

func (c Cell) Date() time.Time { return c.date }

// Format renders the cell as a string with the given float precision
func (c Cell) Format(precision int) string {
	switch c.kind {
	case KindFloat:
		return strconv.FormatFloat(c.num, 'f', precision, 64)
	case KindString:
		return c.str
	case KindDate:
		return c.date.Format("2006-01-02")
	default:
		return ""
	}
}

// Table is an ordered collection of rows with named columns
type Table struct {
	ColNames []string
	Rows     [][]Cell

	// Title lines displayed above rendered output; optional
	Title    string
	Subtitle string
}

// New creates an empty table with the given column names
func New(colNames ...string) *Table {
	return &Table{
		ColNames: colNames,
		Rows:     make([][]Cell, 0, 16),
	}
}

// AddRow appends a row; the number of cells must equal the number of columns
func (t *Table) AddRow(cells ...Cell) *Table {
	if len(cells) != len(t.ColNames) {
		log.Panic().Int("NumCellsPassed", len(cells)).Int("NumColumns", len(t.ColNames)).Msg("number of cells passed must equal number of columns")
	}
	t.Rows = append(t.Rows, cells)
	return t
}

// Len returns the number of rows in the table
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColIndex returns the index of the named column, or -1 if it doesn't exist
func (t *Table) ColIndex(colName string) int {
	for idx, val := range t.ColNames {
		if colName == val {
			return idx
		}
	}
	return -1
}

// Col returns the numeric values of the named column; non-numeric cells are NaN
func (t *Table) Col(colName string) []float64 {
	colIdx := t.ColIndex(colName)
	if colIdx == -1 {
		return nil
	}

	vals := make([]float64, len(t.Rows))
	for rowIdx, row := range t.Rows {
		vals[rowIdx] = row[colIdx].Float()
	}
	return vals
}

// Render prints an ASCII formatted table. Tables larger than MaxRenderRows
// fail with ErrTooManyRows.
func (t *Table) Render() (string, error) {
	if len(t.Rows) == 0 {
		return "<NO DATA>", nil
	}

	if len(t.Rows) > MaxRenderRows {
		return "", fmt.Errorf("%w: %d rows (limit %d)", ErrTooManyRows, len(t.Rows), MaxRenderRows)
	}

	s := &strings.Builder{}
	if t.Title != "" {
		fmt.Fprintln(s, t.Title)
	}
	if t.Subtitle != "" {
		fmt.Fprintln(s, t.Subtitle)
	}

	table := tablewriter.NewWriter(s)
	table.SetHeader(t.ColNames)
	footer := make([]string, len(t.ColNames))
	footer[0] = "Num Rows"
	if len(footer) > 1 {
		footer[1] = fmt.Sprintf("%d", t.Len())
	}
	table.SetFooter(footer)
	table.SetBorder(false)

	for _, row := range t.Rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell.Format(4))
		}
		table.Append(cells)
	}

	table.Render()
	return s.String(), nil
}

// WriteCSV writes the table to w with the given float precision
func (t *Table) WriteCSV(w io.Writer, precision int) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.ColNames); err != nil {
		return fmt.Errorf("could not write csv header: %w", err)
	}

	record := make([]string, len(t.ColNames))
	for _, row := range t.Rows {
		for idx, cell := range row {
			record[idx] = cell.Format(precision)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("could not write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// MarshalJSON serializes the table as {"columns": [...], "rows": [[...]]}
// with NA cells encoded as null
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := make([][]any, len(t.Rows))
	for rowIdx, row := range t.Rows {
		cells := make([]any, len(row))
		for colIdx, cell := range row {
			switch cell.kind {
			case KindFloat:
				cells[colIdx] = cell.num
			case KindString:
				cells[colIdx] = cell.str
			case KindDate:
				cells[colIdx] = cell.date.Format("2006-01-02")
			default:
				cells[colIdx] = nil
			}
		}
		rows[rowIdx] = cells
	}

	return json.Marshal(struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}{
		Columns: t.ColNames,
		Rows:    rows,
	})
}
