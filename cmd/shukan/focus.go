package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/harunnryd/shukan/internal/adapter"
	"github.com/harunnryd/shukan/internal/engine"
	"github.com/harunnryd/shukan/internal/formatter"
	"github.com/harunnryd/shukan/internal/notify"
	"github.com/harunnryd/shukan/internal/session"

	"github.com/spf13/cobra"
)

const (
	focusRefresh    = time.Second
	focusDrainQuiet = 150 * time.Millisecond
)

// focusEngine is what a focus session needs from the engine.
type focusEngine interface {
	StartSession(ctx context.Context, routineID string) (session.Session, error)
	ActiveSession(ctx context.Context) (session.Session, bool, error)
	PauseToggle(ctx context.Context) (session.Session, error)
	AddMinute(ctx context.Context) (session.Session, error)
	FinishEarly(ctx context.Context) (engine.Outcome, error)
	CancelSession(ctx context.Context) error
}

var focusCmd = &cobra.Command{
	Use:   "focus <routine-id>",
	Short: "Run a focus session for a routine",
	Long: `Starts a countdown for the routine and completes it when time runs out.
While it runs, type a command and press Enter:
  p  pause or resume
  m  add a minute
  f  finish now
  c  cancel
Ctrl-C cancels the session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormatter(cmd)
		if err != nil {
			return err
		}
		broker := notify.NewBroker()
		defer broker.Close()

		sig := NewSignalHandler(commandContext(cmd), cmd.ErrOrStderr())
		sig.Start()
		defer sig.Stop()

		return withEngine(cmd, broker, func(_ context.Context, e *engine.Engine) error {
			ctx := sig.Context()
			events := broker.Subscribe(ctx)
			return runFocus(ctx, e, events, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), f)
		})
	},
}

// runFocus drives one session until it completes, is finished early or is
// cancelled. Cancelling ctx cancels the session.
func runFocus(ctx context.Context, e focusEngine, events <-chan notify.Notification, routineID string, in io.Reader, out io.Writer, f formatter.Formatter) error {
	started, err := e.StartSession(ctx, routineID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Focusing on %s for %s. [p]ause  [m]+1 min  [f]inish  [c]ancel\n", started.Title, clock(started.RemainingMs))

	lines := readLines(in)
	ticker := time.NewTicker(focusRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return cancelFocus(e, out)

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "p":
				s, err := e.PauseToggle(ctx)
				if err != nil {
					return err
				}
				progress(out, s)
			case "m":
				s, err := e.AddMinute(ctx)
				if err != nil {
					return err
				}
				progress(out, s)
			case "f":
				outcome, err := e.FinishEarly(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				text, err := f.Outcome(outcome)
				if err := printOut(out, text, err); err != nil {
					return err
				}
				drain(events, out, notify.KindToast)
				return nil
			case "c":
				return cancelFocus(e, out)
			case "":
			default:
				fmt.Fprintf(out, "\nunknown command %q (p, m, f, c)\n", line)
			}

		case n, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if n.Kind == notify.KindRoutineCompleted {
				fmt.Fprintf(out, "\n🎉 Session complete!\n")
				drain(events, out)
				return nil
			}
			printNotification(out, n)

		case <-ticker.C:
			s, active, err := e.ActiveSession(ctx)
			if err != nil {
				return err
			}
			if active {
				progress(out, s)
			}
		}
	}
}

func cancelFocus(e focusEngine, out io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), engineCloseTimeout)
	defer cancel()
	if err := e.CancelSession(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "\nSession cancelled.")
	return nil
}

// drain prints notifications already queued behind a completion, stopping
// once the channel has been quiet for a moment. With kinds given, only
// those are printed.
func drain(events <-chan notify.Notification, out io.Writer, kinds ...notify.Kind) {
	for {
		select {
		case n, ok := <-events:
			if !ok {
				return
			}
			if len(kinds) == 0 || containsKind(kinds, n.Kind) {
				printNotification(out, n)
			}
		case <-time.After(focusDrainQuiet):
			return
		}
	}
}

func containsKind(kinds []notify.Kind, k notify.Kind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

func printNotification(out io.Writer, n notify.Notification) {
	if text, ok := adapter.Format(n); ok {
		fmt.Fprintln(out, text)
	}
}

func printOut(out io.Writer, text string, err error) error {
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, text)
	return err
}

func progress(out io.Writer, s session.Session) {
	state := ""
	if s.Paused {
		state = " (paused)"
	}
	fmt.Fprintf(out, "\r⏳ %s / %s%s   ", clock(s.RemainingMs), clock(s.TotalMs), state)
}

func clock(ms int64) string {
	secs := (ms + 999) / 1000
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// readLines feeds stdin lines to a channel closed at EOF.
func readLines(in io.Reader) <-chan string {
	if in == nil {
		in = os.Stdin
	}
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func init() {
	rootCmd.AddCommand(focusCmd)
}
