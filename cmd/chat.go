package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/internal/kernel"
	"github.com/baihaki00/sentra-sub000/internal/observability"
)

const prompt = "you > "

func newChatCmd() *cobra.Command {
	var trace bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Starts a read-eval-print loop. Besides plain sentences the loop understands:
  /pattern <INTENT> <template>   teach a response template
  /reflect                       consolidate memory now
  /save                          write memory to disk
  /stats                         show memory statistics
  /quit                          save and leave`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, trace)
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "print kernel events to stderr")
	return cmd
}

func runChat(cmd *cobra.Command, trace bool) (err error) {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to save memory: %w", cerr)
		}
	}()

	if trace {
		stopTrace := traceEvents(s.kernel.Bus(), cmd.ErrOrStderr())
		defer stopTrace()
	}
	s.kernel.Start()

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit, err := handleLine(ctx, s, line, out)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}
		if quit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	fmt.Fprintln(out)
	return nil
}

// handleLine runs one REPL line and reports whether the loop should end.
func handleLine(ctx context.Context, s *session, line string, out io.Writer) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		res, err := s.kernel.ProcessTurn(ctx, line)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, "genesis > "+res.Response)
		return false, nil
	}

	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit":
		return true, nil
	case "/save":
		if err := s.kernel.Save(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "memory saved")
	case "/reflect":
		report := s.kernel.Reflect(ctx)
		fmt.Fprintf(out, "consolidated %d, pruned %d nodes and %d edges\n",
			report.Consolidated, report.PrunedNodes, report.PrunedEdges)
	case "/stats":
		return false, writeStats(out, s.kernel.Stats(), formatText)
	case "/pattern":
		stored, err := s.kernel.TeachPattern(ctx, line)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "learned template %q\n", stored)
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
	return false, nil
}

// traceEvents prints every bus message to w until the returned function is
// called.
func traceEvents(bus *kernel.Bus, w io.Writer) func() {
	msgs, unsubscribe := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			fmt.Fprintf(w, "[%s] %s %+v\n", msg.Timestamp.Format("15:04:05.000"), msg.Type, msg.Payload)
			bus.Acknowledge(msg)
		}
	}()
	return func() {
		unsubscribe()
		<-done
	}
}

// logTurn is used by one-shot commands that do not print the event stream.
func logTurn(log *zap.Logger, res kernel.TurnResult) {
	log.Debug("Turn processed", observability.TurnFields(string(res.Route), res.Intent.Intent,
		res.Intent.Score, res.Adequacy.Score, res.InteractionID, res.Duration)...)
}
