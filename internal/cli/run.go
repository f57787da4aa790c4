package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/evoflow/pnmlcore/engine"
	"github.com/evoflow/pnmlcore/pnml"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	MaxSteps int
	AuditDB  string
}

// RunResult is the run command's JSON/text payload.
type RunResult struct {
	RunID      string               `json:"runId"`
	Steps      int                  `json:"steps"`
	Marking    map[string][]string  `json:"marking"`
	PendingAt  int                  `json:"pendingAtStep,omitempty"`
	PendingOp  *engine.PendingOp    `json:"pendingOp,omitempty"`
	Terminated bool                 `json:"terminated"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <net-file>",
		Short: "Fire a net to completion or its first pending operation",
		Long: `Parse a PNML-YAML net file and repeatedly fire enabled transitions
until nothing is enabled or an async operation is left pending.

Example:
  pnmlctl run ./workflows/approval.pnml.yaml
  pnmlctl run --format json --max-steps 100 ./workflows/approval.pnml.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNet(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 10000, "abort after this many synchronous steps (runaway-net guard)")
	cmd.Flags().StringVar(&opts.AuditDB, "audit-db", "", `record fired transitions to an audit store: "sqlite:<path>" or "mysql:<dsn>"`)

	return cmd
}

func runNet(opts *RunOptions, path string, cmd *cobra.Command) error {
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
	net, _ := pnml.Parse(text)
	formatter.VerboseLog("parsed net %q: %d place(s), %d transition(s)", net.ID, len(net.Places), len(net.Transitions))

	var engOpts []engine.Option
	audit, err := openAuditStore(opts.AuditDB)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid audit store", err)
	}
	if audit != nil {
		defer func() { _ = audit.Close() }()
		engOpts = append(engOpts, engine.WithAuditStore(audit))
	}

	eng := engine.New(net, engOpts...)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	steps := 0
	var lastPending *engine.PendingOp
	for steps < opts.MaxSteps {
		tid, pending, err := eng.StepOnce(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "engine error", err)
		}
		if pending != nil {
			if !pending.Completed {
				lastPending = pending
				break
			}
			steps++
			continue
		}
		if tid == "" {
			break
		}
		steps++
	}

	result := RunResult{
		RunID:      eng.RunID(),
		Steps:      steps,
		Marking:    markingStrings(eng),
		Terminated: lastPending == nil,
	}
	if lastPending != nil {
		result.PendingAt = steps
		result.PendingOp = lastPending
	}
	return formatter.Success(result)
}

func markingStrings(eng *engine.Engine) map[string][]string {
	marking := eng.Marking()
	out := make(map[string][]string, len(marking))
	for pid, toks := range marking {
		reprs := make([]string, len(toks))
		for i, t := range toks {
			reprs[i] = t.String()
		}
		out[pid] = reprs
	}
	return out
}
