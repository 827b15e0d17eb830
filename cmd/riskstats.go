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
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-attribution/riskstats"
	"github.com/penny-vault/pv-attribution/tabular"
)

var (
	riskFrequency string
	riskFormat    string
	riskPrecision int
)

func init() {
	riskCmd.Flags().StringVar(&riskFrequency, "frequency", "monthly", "Reporting frequency: monthly, quarterly, or yearly")
	riskCmd.Flags().StringVar(&riskFormat, "format", "table", "Output format: table, csv, or json")
	riskCmd.Flags().IntVar(&riskPrecision, "precision", tabular.DefaultPrecision, "Decimal places for csv and json output")

	riskCmd.Flags().Float64("mar", 0, "Annual minimum acceptable return for downside statistics")
	viper.BindPFlag("riskstats.annual_minimum_acceptable_return", riskCmd.Flags().Lookup("mar"))

	riskCmd.Flags().Float64("risk-free-rate", 0.03, "Annual risk-free rate")
	viper.BindPFlag("riskstats.annual_risk_free_rate", riskCmd.Flags().Lookup("risk-free-rate"))

	riskCmd.Flags().Float64("confidence-level", 0.95, "Confidence level for value-at-risk")
	viper.BindPFlag("riskstats.confidence_level", riskCmd.Flags().Lookup("confidence-level"))

	riskCmd.Flags().Float64("portfolio-value", 100_000, "Portfolio currency value for value-at-risk")
	viper.BindPFlag("riskstats.portfolio_value", riskCmd.Flags().Lookup("portfolio-value"))

	rootCmd.AddCommand(riskCmd)
}

var riskCmd = &cobra.Command{
	Use:   "riskstats [portfolio csv] [benchmark csv]",
	Short: "Compute ex-post risk statistics for a portfolio/benchmark pair",
	Long: `Reads two single-column csv files of periodic returns and computes the
ex-post risk statistics table: absolute risk, downside risk, benchmark-relative
risk, risk-adjusted performance, and regression statistics.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		freq, err := parseFrequency(riskFrequency)
		if err != nil {
			return err
		}

		portfolioReturns, err := loadReturns(args[0])
		if err != nil {
			return err
		}
		benchmarkReturns, err := loadReturns(args[1])
		if err != nil {
			return err
		}

		stats, err := riskstats.New(portfolioReturns, benchmarkReturns, freq, riskstats.DefaultOptions())
		if err != nil {
			return err
		}

		return writeTable(stats.Table(), riskFormat, riskPrecision)
	},
}
