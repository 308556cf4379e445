package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HeliosCommand/server/internal/agent/workflow"
	"github.com/HeliosCommand/server/internal/flood"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

const goodbyeMessage = "Thank you for using HeliosCommand. Stay healthy! Goodbye."

var exitWords = map[string]bool{"quit": true, "exit": true, "bye": true, "goodbye": true}

type rootOptions struct {
	conversationID string
	flood          bool
	csvWeight      float64
}

func newRootCmd(cfg *AppConfig) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "helios [query]",
		Short: "HeliosCommand healthcare assistant and flood alert pipeline",
		Long: "Without arguments helios starts an interactive session. With a query it answers one turn.\n" +
			"--flood runs the flood analysis pipeline once and prints the outcome.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return flood.ValidateWeight(opts.csvWeight)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if opts.flood {
				return runFlood(ctx, app, opts.csvWeight, cmd.OutOrStdout())
			}

			runner, err := app.Runner(ctx)
			if err != nil {
				return err
			}
			wf, err := workflow.New(ctx, runner, app.sessions, app.models.Utility, opts.conversationID)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				fmt.Fprintln(cmd.OutOrStdout(), wf.Chat(ctx, args[0]))
				return nil
			}
			return repl(ctx, wf, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.conversationID, "conversation-id", "", "resume a stored conversation")
	cmd.Flags().BoolVar(&opts.flood, "flood", false, "run the flood alert pipeline once")
	cmd.Flags().Float64Var(&opts.csvWeight, "csv-weight", flood.DefaultCSVWeight, "trust weight of the sensor analysis, between 0 and 1")
	return cmd
}

func runFlood(ctx context.Context, app *App, csvWeight float64, out io.Writer) error {
	pipeline, err := app.FloodPipeline(ctx)
	if err != nil {
		return err
	}
	outcome, err := pipeline.Run(ctx, csvWeight)
	if err != nil {
		logx.Error().Err(err).Msg("Flood pipeline failed")
		return err
	}
	fmt.Fprintln(out, outcome.Summary())
	return nil
}

// readLines scans in on its own goroutine and stops once ctx is done.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// repl reads one message per line until an exit word, EOF or cancellation.
func repl(ctx context.Context, wf *workflow.Workflow, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "%s\n(conversation %s)\n\n", wf.Greeting(ctx), wf.ConversationID())

	lines := readLines(ctx, in)

	for {
		fmt.Fprint(out, "You: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\n"+goodbyeMessage)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "\n"+goodbyeMessage)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case exitWords[strings.ToLower(line)]:
			fmt.Fprintln(out, goodbyeMessage)
			return nil
		case strings.EqualFold(line, "reset"):
			fmt.Fprintf(out, "Started a new conversation (%s).\n\n", wf.Reset())
			continue
		}

		fmt.Fprintf(out, "HeliosCommand: %s\n\n", wf.Chat(ctx, line))
	}
}
