package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ashureev/leetmentor/internal/extractor"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract problem details from a page",
	RunE:  runExtract,
}

func init() {
	addSourceFlags(extractCmd)
	extractCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func runExtract(cmd *cobra.Command, _ []string) error {
	output, _ := cmd.Flags().GetString("output")

	report, err := extractReport(cmd.Context(), cmd)
	if err != nil {
		return err
	}

	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(report)
	return nil
}

func printReport(report extractor.Report) {
	info := report.Info
	if report.Faulted {
		pterm.Warning.Printfln("Extraction failed, showing fallback record: %s", report.Fault)
	}

	pterm.DefaultSection.Println(info.Title)
	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows,
		[]string{"Difficulty", string(info.Difficulty)},
		[]string{"Category", info.Category},
		[]string{"URL", info.URL},
		[]string{"Examples", fmt.Sprint(len(info.Examples))},
		[]string{"Constraints", fmt.Sprint(len(info.Constraints))},
		[]string{"Related", fmt.Sprint(len(info.RelatedProblems))},
		[]string{"Code lines", fmt.Sprint(countLines(info.UserCode))},
	)
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	if info.Statement != "" {
		pterm.DefaultSection.WithLevel(2).Println("Statement")
		pterm.Println(info.Statement)
	}
	for _, ex := range info.Examples {
		pterm.Println()
		pterm.Println(pterm.Gray(ex))
	}
	if len(info.Constraints) > 0 {
		pterm.DefaultSection.WithLevel(2).Println("Constraints")
		for _, c := range info.Constraints {
			pterm.Println("  • " + c)
		}
	}

	if len(report.Fields) == 0 {
		return
	}
	pterm.DefaultSection.WithLevel(2).Println("Field sources")
	names := make([]string, 0, len(report.Fields))
	for name := range report.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := pterm.TableData{{"Field", "Source", "Note"}}
	for _, name := range names {
		trace := report.Fields[name]
		source := trace.Source
		if trace.Fallback {
			source = pterm.Yellow("fallback")
		}
		fields = append(fields, []string{name, source, trace.Reason})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(fields).Render()
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
