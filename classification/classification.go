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

// Package classification provides the identifier -> display-name table used
// to label attribution rows, and the identifier -> identifier mapping used to
// relabel assets into a classification (e.g. security -> sector) upstream of
// the attribution engine.
package classification

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-attribution/common"
	"github.com/penny-vault/pv-attribution/tabular"
)

var (
	ErrMissingClassificationName = errors.New("classification name is required")
	ErrColumnCount               = errors.New("data source must contain at least 2 columns")
	ErrDataSourceUnavailable     = errors.New("could not read data source")
	ErrMalformedDateString       = errors.New("date must be in the format yyyy-mm-dd")
)

// Source provides two-column (key, value) data for a Classification or a
// Mapping. The first column is the key and the second column is the value.
type Source interface {
	Pairs() (map[string]string, error)
}

// CSVFile is a Source backed by a two-column csv file
type CSVFile string

// Pairs loads the csv file into a map; rows with fewer than 2 fields are
// skipped, matching the behavior of a hand-maintained mapping file with
// blank lines
func (f CSVFile) Pairs() (map[string]string, error) {
	fh, err := os.Open(string(f))
	if err != nil {
		log.Error().Err(err).Str("FilePath", string(f)).Msg("could not open csv data source")
		return nil, fmt.Errorf("%w: %s", ErrDataSourceUnavailable, f)
	}
	defer fh.Close()

	reader := csv.NewReader(fh)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrDataSourceUnavailable, f, err.Error())
	}

	pairs := make(map[string]string, len(records))
	for _, record := range records {
		if len(record) < 2 {
			continue
		}
		pairs[record[0]] = strings.TrimSpace(record[1])
	}
	return pairs, nil
}

// Pairs is a Source backed by an in-memory map
type Pairs map[string]string

func (p Pairs) Pairs() (map[string]string, error) {
	return p, nil
}

// TableSource is a Source backed by the first two columns of a table
type TableSource struct {
	Table *tabular.Table
}

func (s TableSource) Pairs() (map[string]string, error) {
	if len(s.Table.ColNames) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrColumnCount, len(s.Table.ColNames))
	}

	pairs := make(map[string]string, s.Table.Len())
	for _, row := range s.Table.Rows {
		pairs[row[0].Format(0)] = row[1].Format(0)
	}
	return pairs, nil
}

// Classification maps lower-cased asset identifiers to display names
type Classification struct {
	Name  string
	items map[string]string
}

// New builds a Classification from the named two-column data source; keys are
// lower-cased for case-insensitive joins
func New(name string, source Source) (*Classification, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingClassificationName
	}

	pairs, err := source.Pairs()
	if err != nil {
		return nil, err
	}

	items := make(map[string]string, len(pairs))
	for key, value := range pairs {
		items[strings.ToLower(key)] = value
	}

	return &Classification{
		Name:  name,
		items: items,
	}, nil
}

// DisplayName returns the display name for the identifier, or the identifier
// itself when it is not present in the classification
func (c *Classification) DisplayName(identifier string) string {
	if name, ok := c.items[strings.ToLower(identifier)]; ok {
		return name
	}
	return identifier
}

// Len returns the number of classification items
func (c *Classification) Len() int {
	return len(c.items)
}

// Mapping relabels identifiers from one classification into another,
// e.g. security -> sector. Identifiers without a mapping map to themselves.
type Mapping struct {
	mappings map[string]string
}

// NewMapping builds a Mapping restricted to the identifiers that actually
// need mapping; keys are lower-cased before matching
func NewMapping(fromIdentifiers []string, source Source) (*Mapping, error) {
	pairs, err := source.Pairs()
	if err != nil {
		return nil, err
	}

	lowered := make(map[string]string, len(pairs))
	for key, value := range pairs {
		lowered[strings.ToLower(key)] = value
	}

	mappings := make(map[string]string, len(fromIdentifiers))
	for _, from := range fromIdentifiers {
		if to, ok := lowered[strings.ToLower(from)]; ok {
			mappings[from] = to
		} else {
			mappings[from] = from
		}
	}

	return &Mapping{mappings: mappings}, nil
}

// Resolve maps the identifier to its target classification item
func (m *Mapping) Resolve(identifier string) string {
	if to, ok := m.mappings[identifier]; ok {
		return to
	}
	return identifier
}

// ParseDate parses a yyyy-mm-dd date string
func ParseDate(s string) (time.Time, error) {
	date, err := time.Parse(common.DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDateString, s)
	}
	return date, nil
}
