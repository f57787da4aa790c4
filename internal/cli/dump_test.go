package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDump_PrintsPlacesTransitionsAndArcs(t *testing.T) {
	path := writeNetFile(t, sampleNetYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewDumpCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "id: approval")
	assert.Contains(t, out, "id: p1")
	assert.Contains(t, out, "id: t1")
	assert.Contains(t, out, "source: p1")
}

func TestDump_InvalidNetFailsValidation(t *testing.T) {
	path := writeNetFile(t, "pnml:\n  net:\n    - id: empty\n")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewDumpCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
