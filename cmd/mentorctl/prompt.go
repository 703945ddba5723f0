package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ashureev/leetmentor/internal/domain"
	"github.com/ashureev/leetmentor/internal/prompt"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the interviewer system prompt for a problem",
	RunE: func(cmd *cobra.Command, _ []string) error {
		report, err := extractReport(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		fmt.Println(prompt.BuildSystemPrompt(report.Info))
		return nil
	},
}

var hintCmd = &cobra.Command{
	Use:   "hint",
	Short: "Print the hint for an interview phase",
	Example: `  mentorctl hint --phase approach_discussion --level 1
  mentorctl hint --phase implementation --level 3 --category "Tree"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		phaseName, _ := cmd.Flags().GetString("phase")
		level, _ := cmd.Flags().GetInt("level")
		category, _ := cmd.Flags().GetString("category")

		phase, err := domain.ParsePhase(phaseName)
		if err != nil {
			return err
		}
		pterm.Info.Printfln("%s, level %d", phase, level)
		fmt.Println(prompt.Hint(phase, category, level))
		return nil
	},
}

func init() {
	addSourceFlags(promptCmd)

	hintCmd.Flags().String("phase", string(domain.PhaseProblemUnderstanding), "Interview phase")
	hintCmd.Flags().Int("level", 1, "Hint level (1-3)")
	hintCmd.Flags().String("category", "", "Comma-separated topic tags")
}
