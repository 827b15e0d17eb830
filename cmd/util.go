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

package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-attribution/classification"
	"github.com/penny-vault/pv-attribution/frequency"
	"github.com/penny-vault/pv-attribution/performance"
	"github.com/penny-vault/pv-attribution/tabular"
)

// parseFrequency maps a command-line flag value to a Frequency
func parseFrequency(value string) (frequency.Frequency, error) {
	switch strings.ToLower(value) {
	case "periodic":
		return frequency.AsOftenAsPossible, nil
	case "monthly":
		return frequency.Monthly, nil
	case "quarterly":
		return frequency.Quarterly, nil
	case "yearly":
		return frequency.Yearly, nil
	}
	return "", fmt.Errorf("unknown frequency: %s", value)
}

// loadPerformance reads a performance csv with the columns
// Begin,End,Identifier,Return,Weight (one row per subperiod and asset).
// Contributions and subperiod total returns are derived from the weights and
// returns; assets absent from a subperiod carry zero weight.
func loadPerformance(name, path string) (*performance.Performance, error) {
	fh, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("FilePath", path).Msg("could not open performance csv")
		return nil, err
	}
	defer fh.Close()

	reader := csv.NewReader(fh)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}

	periods := make([]performance.Period, 0, len(records))
	periodIdx := make(map[string]int, len(records))

	type cell struct {
		periodIdx int
		ret       float64
		weight    float64
	}
	assetCells := make(map[string][]cell, 16)

	for rowIdx, record := range records {
		if len(record) < 5 {
			return nil, fmt.Errorf("%s row %d: expected 5 columns, got %d", path, rowIdx+1, len(record))
		}

		ret, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			if rowIdx == 0 {
				// header row
				continue
			}
			return nil, fmt.Errorf("%s row %d: could not parse return: %w", path, rowIdx+1, err)
		}
		weight, err := strconv.ParseFloat(record[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: could not parse weight: %w", path, rowIdx+1, err)
		}

		begin, err := classification.ParseDate(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, rowIdx+1, err)
		}
		end, err := classification.ParseDate(record[1])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, rowIdx+1, err)
		}

		key := record[0] + "|" + record[1]
		idx, ok := periodIdx[key]
		if !ok {
			idx = len(periods)
			periodIdx[key] = idx
			periods = append(periods, performance.Period{Begin: begin, End: end})
		}

		identifier := strings.ToLower(record[2])
		assetCells[identifier] = append(assetCells[identifier], cell{periodIdx: idx, ret: ret, weight: weight})
	}

	if len(periods) == 0 {
		return nil, performance.ErrNoSubperiods
	}

	assets := make(map[string]performance.AssetSeries, len(assetCells))
	for identifier, cells := range assetCells {
		series := performance.AssetSeries{
			Returns:       make([]float64, len(periods)),
			Weights:       make([]float64, len(periods)),
			Contributions: make([]float64, len(periods)),
		}
		for _, c := range cells {
			series.Returns[c.periodIdx] = c.ret
			series.Weights[c.periodIdx] = c.weight
			series.Contributions[c.periodIdx] = c.weight * c.ret
			periods[c.periodIdx].TotalReturn += series.Contributions[c.periodIdx]
		}
		assets[identifier] = series
	}

	return performance.New(name, periods, assets)
}

// loadReturns reads a single-column csv of periodic returns, skipping a
// non-numeric header row
func loadReturns(path string) ([]float64, error) {
	fh, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("FilePath", path).Msg("could not open returns csv")
		return nil, err
	}
	defer fh.Close()

	reader := csv.NewReader(fh)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}

	returns := make([]float64, 0, len(records))
	for rowIdx, record := range records {
		if len(record) == 0 {
			continue
		}
		ret, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			if rowIdx == 0 {
				continue
			}
			return nil, fmt.Errorf("%s row %d: could not parse return: %w", path, rowIdx+1, err)
		}
		returns = append(returns, ret)
	}
	return returns, nil
}

// writeTable prints the table to stdout in the requested format
func writeTable(table *tabular.Table, format string, precision int) error {
	switch strings.ToLower(format) {
	case "table", "":
		out, err := table.Render()
		if err != nil {
			return err
		}
		fmt.Println(out)
	case "csv":
		return table.WriteCSV(os.Stdout, precision)
	case "json":
		data, err := json.Marshal(table)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}
