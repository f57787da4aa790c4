package cli

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evoflow/pnmlcore/debug"
	"github.com/evoflow/pnmlcore/engine"
	"github.com/evoflow/pnmlcore/pnml"
)

// DebugOptions holds flags for the debug command.
type DebugOptions struct {
	*RootOptions
	Breakpoints []string
	AuditDB     string
}

// DebugStep is one history entry rendered for the debug command.
type DebugStep struct {
	Step           int      `json:"step"`
	TransitionID   string   `json:"transitionId"`
	Line           int      `json:"line,omitempty"`
	ProducedPlaces []string `json:"producedPlaces,omitempty"`
}

// DebugResult is the debug command's JSON/text payload.
type DebugResult struct {
	RunID string      `json:"runId"`
	Steps []DebugStep `json:"steps"`
}

// NewDebugCommand creates the debug command.
func NewDebugCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DebugOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "debug <net-file>",
		Short: "Drive a debug session, stopping at breakpointed places",
		Long: `Parse a PNML-YAML net file, set breakpoints on the given line
numbers, and run to completion, printing each step the run stopped at.

Example:
  pnmlctl debug --break 7,15 ./workflows/approval.pnml.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return debugNet(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Breakpoints, "break", nil, "comma-separated 0-based line numbers to break on")
	cmd.Flags().StringVar(&opts.AuditDB, "audit-db", "", `record fired transitions to an audit store: "sqlite:<path>" or "mysql:<dsn>"`)

	return cmd
}

func debugNet(opts *DebugOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read net file", err)
	}
	text := pnml.Normalize(string(raw))
	if err := pnml.Validate(text); err != nil {
		return WrapExitError(ExitCommandError, "net failed validation", err)
	}

	lines, err := parseLineNumbers(opts.Breakpoints)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --break value", err)
	}

	var engOpts []engine.Option
	audit, err := openAuditStore(opts.AuditDB)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid audit store", err)
	}
	if audit != nil {
		defer func() { _ = audit.Close() }()
		engOpts = append(engOpts, engine.WithAuditStore(audit))
	}

	d := debug.New(engOpts...)
	if err := d.Load(text); err != nil {
		return WrapExitError(ExitCommandError, "failed to load net", err)
	}
	if len(lines) > 0 {
		d.SetBreakpoints(lines)
		formatter.VerboseLog("breakpoints set on %d place(s)", len(d.Breakpoints()))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var steps []DebugStep
	for {
		entry, err := d.ContinueRun(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "engine error", err)
		}
		if entry == nil {
			break
		}
		steps = append(steps, toDebugStep(*entry))
		if !entry.HasLine && isUnresolvedPending(d.Engine()) {
			formatter.VerboseLog("stopped on a pending operation at step %d; pnmlctl cannot submit results interactively", entry.Step)
			break
		}
	}

	return formatter.Success(DebugResult{RunID: d.Engine().RunID(), Steps: steps})
}

func isUnresolvedPending(eng *engine.Engine) bool {
	return eng != nil && eng.PendingCount() > 0
}

func toDebugStep(entry engine.HistoryEntry) DebugStep {
	step := DebugStep{
		Step:           entry.Step,
		TransitionID:   entry.TransitionID,
		ProducedPlaces: entry.ProducedPlaces,
	}
	if entry.HasLine {
		step.Line = entry.Line
	}
	return step
}

func parseLineNumbers(raw []string) ([]int, error) {
	out := make([]int, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
