package cli

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/evoflow/pnmlcore/pnml"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
}

// dumpNet is the YAML-serializable shape dump emits — a flattened view
// of pnml.Net, since Net itself carries pointer-heavy maps not meant
// for direct marshaling.
type dumpNet struct {
	ID          string           `yaml:"id"`
	Places      []dumpPlace      `yaml:"places"`
	Transitions []dumpTransition `yaml:"transitions"`
	Arcs        []dumpArc        `yaml:"arcs"`
}

type dumpPlace struct {
	ID            string   `yaml:"id"`
	InitialTokens []string `yaml:"initialTokens,omitempty"`
}

type dumpTransition struct {
	ID           string            `yaml:"id"`
	Inscriptions []dumpInscription `yaml:"inscriptions,omitempty"`
}

type dumpInscription struct {
	ID          string `yaml:"id"`
	Kind        string `yaml:"kind"`
	ExecMode    string `yaml:"execMode,omitempty"`
	RegistryKey string `yaml:"registryKey"`
}

type dumpArc struct {
	ID     string `yaml:"id"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <net-file>",
		Short: "Parse a net file and print its structure as YAML",
		Long: `Parse a PNML-YAML net file and print the resulting places,
transitions, arcs, and inscription registry keys as plain YAML —
useful for checking what registry keys a net expects before wiring
its inscriptions.

Example:
  pnmlctl dump ./workflows/approval.pnml.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpNetFile(opts, args[0], cmd)
		},
	}

	return cmd
}

func dumpNetFile(opts *DumpOptions, path string, cmd *cobra.Command) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read net file", err)
	}
	text := pnml.Normalize(string(raw))
	if err := pnml.Validate(text); err != nil {
		return WrapExitError(ExitCommandError, "net failed validation", err)
	}
	net, _ := pnml.Parse(text)

	out := dumpNet{ID: net.ID}
	for _, pid := range sortedKeys(net.Places) {
		place := net.Places[pid]
		toks := make([]string, len(place.Tokens))
		for i, t := range place.Tokens {
			toks[i] = t.String()
		}
		out.Places = append(out.Places, dumpPlace{ID: place.ID, InitialTokens: toks})
	}
	for _, tid := range net.TransitionOrder {
		transition := net.Transitions[tid]
		dt := dumpTransition{ID: transition.ID}
		for _, ins := range transition.Inscriptions {
			dt.Inscriptions = append(dt.Inscriptions, dumpInscription{
				ID: ins.ID, Kind: ins.Kind, ExecMode: ins.ExecMode, RegistryKey: ins.RegistryKey,
			})
		}
		out.Transitions = append(out.Transitions, dt)
	}
	for _, arc := range net.Arcs {
		out.Arcs = append(out.Arcs, dumpArc{ID: arc.ID, Source: arc.Source, Target: arc.Target})
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	if err := enc.Encode(out); err != nil {
		return WrapExitError(ExitFailure, "failed to encode dump", err)
	}
	return nil
}

func sortedKeys(places map[string]*pnml.Place) []string {
	keys := make([]string, 0, len(places))
	for k := range places {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
