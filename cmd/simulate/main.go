// Package main prices quote requests against a declared market state from a
// YAML scenario file, with no chain or database access. Useful for exploring
// fee schedules and protocol ceilings around the stability thresholds.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"solana-exchange-core/internal/simulation"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Path to scenario YAML file (required)")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	if *scenarioPath == "" {
		logger.Fatal("--scenario is required")
	}

	data, err := os.ReadFile(*scenarioPath)
	if err != nil {
		logger.Fatalf("read scenario: %v", err)
	}
	var scenario simulation.Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		logger.Fatalf("parse scenario: %v", err)
	}

	results, err := simulation.NewRunner().Run(&scenario)
	if err != nil {
		logger.Fatalf("run scenario: %v", err)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			logger.Fatalf("encode results: %v", err)
		}
		return
	}

	printTable(results)
}

func printTable(results []simulation.Result) {
	if len(results) > 0 {
		fmt.Printf("stability mode: %s, collateral ratio: %.9f\n\n",
			results[0].StabilityMode, results[0].CollateralRatio)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OPERATION\tLST\tIN\tOUT\tFEE\tFEE TOKEN\tFEE PCT\tERROR")
	for _, r := range results {
		if r.Err != "" {
			fmt.Fprintf(w, "%s\t%s\t\t\t\t\t\t%s\n", r.Operation, r.LST, r.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t\n",
			r.Operation, r.LST, r.InAmount, r.OutAmount, r.FeeAmount, r.FeeToken, r.FeePct)
	}
	w.Flush()
}
