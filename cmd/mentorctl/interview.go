package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ashureev/leetmentor/internal/agent"
	"github.com/ashureev/leetmentor/internal/extractor"
	"github.com/ashureev/leetmentor/internal/interview"
	"github.com/ashureev/leetmentor/internal/mentor"
	"github.com/ashureev/leetmentor/internal/store"
)

const interviewHelp = `Commands:
  /hint            get a hint for the current phase
  /next            move to the next phase
  /phase <name>    jump to a phase
  /status          show the session state
  /done            finish and save the interview
  /quit            leave without saving`

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run a mock interview in the terminal",
	RunE:  runInterview,
}

func init() {
	addSourceFlags(interviewCmd)
	interviewCmd.Flags().String("tab", "cli", "Session name, used to keep several interviews apart")
}

func runInterview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	req, err := startRequest(cmd)
	if err != nil {
		return err
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	processor, err := agent.NewProcessor(ctx, agent.Config{
		Provider:         cfg.Agent.Provider,
		ModelName:        cfg.Agent.Model,
		GoogleAPIKey:     cfg.Agent.GoogleAPIKey,
		OpenAIAPIKey:     cfg.Agent.OpenAIAPIKey,
		OpenRouterAPIKey: cfg.Agent.OpenRouterAPIKey,
		AnthropicAPIKey:  cfg.Agent.AnthropicAPIKey,
		MaxTokens:        cfg.Agent.MaxTokens,
	}, logger)
	if err != nil {
		return fmt.Errorf("interview needs a model provider: %w", err)
	}
	defer processor.Close()

	opts := []mentor.Option{mentor.WithProcessor(processor)}
	if req.HTML == "" && req.Problem == nil {
		renderer, err := newRenderer()
		if err != nil {
			return err
		}
		defer func() { _ = renderer.Close() }()
		opts = append(opts, mentor.WithRenderer(renderer))
	}

	svc := mentor.NewService(mentor.NewRegistry(), extractor.New(logger), repo, logger, opts...)
	tab, _ := cmd.Flags().GetString("tab")
	key := mentor.Key{UserID: localUserID(), TabID: tab}

	spinner, _ := pterm.DefaultSpinner.Start("Loading problem")
	started, err := svc.Start(ctx, key, req)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success(started.Problem.Title)

	pterm.Info.Printfln("%s · %s · %s", started.Problem.Difficulty, started.Problem.Category, processor.Name())
	pterm.Println(pterm.Gray(interviewHelp))
	pterm.Println()
	pterm.Println(started.Instruction)

	return interviewLoop(ctx, svc, key)
}

func interviewLoop(ctx context.Context, svc *mentor.Service, key mentor.Key) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		pterm.Print(pterm.Cyan("\nyou> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		done, err := handleLine(ctx, svc, key, line)
		if err != nil {
			if errors.Is(err, mentor.ErrNoActiveSession) {
				return err
			}
			pterm.Error.Println(err)
		}
		if done {
			return nil
		}
		if svc.ShouldEnd(key) {
			pterm.Warning.Println("Time to wrap up. Type /done to finish and save the interview.")
		}
	}
}

// handleLine runs one input line and reports whether the interview is over.
func handleLine(ctx context.Context, svc *mentor.Service, key mentor.Key, line string) (bool, error) {
	command, arg, _ := strings.Cut(line, " ")
	switch command {
	case "/hint":
		hint, err := svc.Hint(key)
		if err != nil {
			return false, err
		}
		pterm.Info.Printfln("Hint %s: %s", hint.HintsUsed, hint.Hint)
	case "/next", "/phase":
		var (
			result *mentor.PhaseResult
			err    error
		)
		if command == "/next" {
			result, err = svc.NextPhase(key, "cli")
		} else {
			result, err = svc.AdvancePhase(key, strings.TrimSpace(arg), "cli")
		}
		if err != nil {
			return false, err
		}
		pterm.Info.Printfln("Phase: %s", result.Status.Phase)
		pterm.Println(result.Instruction)
	case "/status":
		printStatus(svc.Status(key))
	case "/done":
		summary, err := svc.Complete(ctx, key)
		if err != nil {
			return false, err
		}
		pterm.Success.Printfln("Interview saved: %s, %d minutes, %d hints, %d messages, ended in %s",
			summary.ProblemTitle, summary.DurationMinutes, summary.HintsUsed, summary.TotalMessages, summary.FinalPhase)
		return true, nil
	case "/quit":
		svc.Reset(key)
		return true, nil
	case "/help":
		pterm.Println(interviewHelp)
	default:
		pterm.Print(pterm.Green("mentor> "))
		for chunk, err := range svc.Chat(ctx, key, mentor.ChannelCLI, line) {
			if err != nil {
				pterm.Println()
				return false, err
			}
			pterm.Print(chunk.Content)
		}
		pterm.Println()
	}
	return false, nil
}

func printStatus(status interview.Status) {
	if !status.Active {
		pterm.Info.Println(status.Message)
		return
	}
	rows := [][]string{
		{"Problem", status.ProblemTitle},
		{"Phase", string(status.Phase)},
		{"Hints", status.HintsUsed},
		{"Messages", fmt.Sprint(status.MessageCount)},
		{"Duration", status.Duration},
		{"Started", status.StartedAt},
	}
	_ = pterm.DefaultTable.WithData(rows).Render()
}

func localUserID() string {
	if u := os.Getenv("USER"); u != "" {
		return "local_" + u
	}
	return "local"
}
