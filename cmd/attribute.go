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
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-attribution/attribution"
	"github.com/penny-vault/pv-attribution/classification"
	"github.com/penny-vault/pv-attribution/tabular"
)

var (
	attributeView               string
	attributeClassificationCSV  string
	attributeClassificationName string
	attributeFrequency          string
	attributeFormat             string
	attributePrecision          int
	attributeSkipAudit          bool
)

func init() {
	attributeCmd.Flags().StringVar(&attributeView, "view", "overall", "View to display: subperiod, overall, cumulative, or summary")
	attributeCmd.Flags().StringVar(&attributeClassificationCSV, "classification", "", "Two-column csv mapping identifiers to display names")
	attributeCmd.Flags().StringVar(&attributeClassificationName, "classification-name", "", "Name of the classification, e.g. Sector")
	attributeCmd.Flags().StringVar(&attributeFrequency, "frequency", "monthly", "Reporting frequency: periodic, monthly, quarterly, or yearly")
	attributeCmd.Flags().StringVar(&attributeFormat, "format", "table", "Output format: table, csv, or json")
	attributeCmd.Flags().IntVar(&attributePrecision, "precision", tabular.DefaultPrecision, "Decimal places for csv and json output")
	attributeCmd.Flags().BoolVar(&attributeSkipAudit, "skip-audit", false, "Skip the arithmetic identity audit")
	rootCmd.AddCommand(attributeCmd)
}

var attributeCmd = &cobra.Command{
	Use:   "attribute [portfolio csv] [benchmark csv]",
	Short: "Decompose a portfolio's excess return into allocation and selection effects",
	Long: `Reads portfolio and benchmark performance csv files with the columns
Begin,End,Identifier,Return,Weight and computes a Brinson-Fachler attribution
with logarithmic linking across subperiods.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		freq, err := parseFrequency(attributeFrequency)
		if err != nil {
			return err
		}

		view, err := parseView(attributeView)
		if err != nil {
			return err
		}

		portfolio, err := loadPerformance("Portfolio", args[0])
		if err != nil {
			return err
		}
		benchmark, err := loadPerformance("Benchmark", args[1])
		if err != nil {
			return err
		}

		var source classification.Source
		if attributeClassificationCSV != "" {
			source = classification.CSVFile(attributeClassificationCSV)
		}

		attr, err := attribution.New(portfolio, benchmark, attributeClassificationName, source, freq)
		if err != nil {
			return err
		}

		if !attributeSkipAudit {
			if err := attr.Audit(); err != nil {
				log.Error().Err(err).Msg("attribution failed its audit")
				return err
			}
		}

		table, err := attr.Table(view)
		if err != nil {
			return err
		}
		return writeTable(table, attributeFormat, attributePrecision)
	},
}

func parseView(value string) (attribution.View, error) {
	switch value {
	case "subperiod":
		return attribution.ViewSubperiodAttribution, nil
	case "overall":
		return attribution.ViewOverallAttribution, nil
	case "cumulative":
		return attribution.ViewCumulativeAttribution, nil
	case "summary":
		return attribution.ViewSubperiodSummary, nil
	}
	return "", fmt.Errorf("unknown view: %s", value)
}
