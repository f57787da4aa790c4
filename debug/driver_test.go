package debug

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chainNet = `pnml:
  net:
    - id: n
      page:
        - id: pg
          place:
            - id: p1
              evolve:
                initialTokens:
                  - value: "tok"
            - id: p2
            - id: p3
          transition:
            - id: t1
            - id: t2
          arc:
            - id: a1
              source: p1
              target: t1
            - id: a2
              source: t1
              target: p2
            - id: a3
              source: p2
              target: t2
            - id: a4
              source: t2
              target: p3
`

func TestDriver_LoadResetsState(t *testing.T) {
	d := New()
	require.NoError(t, d.Load(chainNet))
	assert.NotNil(t, d.Engine())
	assert.Empty(t, d.History())
}

func TestDriver_StepOnceAppendsHistoryRegardlessOfBreakpoint(t *testing.T) {
	d := New()
	require.NoError(t, d.Load(chainNet))

	entry, err := d.StepOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "t1", entry.TransitionID)
	assert.Equal(t, []string{"p2"}, entry.ProducedPlaces)
	assert.Len(t, d.History(), 1)
}

func TestDriver_ContinueRunWithoutBreakpointsDrainsToEnd(t *testing.T) {
	d := New()
	require.NoError(t, d.Load(chainNet))

	entry, err := d.ContinueRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Len(t, d.History(), 2)
}

func TestDriver_ContinueRunStopsAtBreakpoint(t *testing.T) {
	d := New()
	require.NoError(t, d.Load(chainNet))

	p2Line := -1
	for _, p := range d.placeIndex {
		if p.ID == "p2" {
			p2Line = p.IDLine
		}
	}
	require.GreaterOrEqual(t, p2Line, 0)
	d.SetBreakpoints([]int{p2Line})

	entry, err := d.ContinueRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "t1", entry.TransitionID)
	assert.True(t, entry.HasLine)
	assert.Equal(t, p2Line, entry.Line)
	assert.Len(t, d.History(), 1)

	entry2, err := d.ContinueRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, entry2)
	assert.Len(t, d.History(), 2)
}

func TestDriver_FindPlaceForLine(t *testing.T) {
	d := New()
	require.NoError(t, d.Load(chainNet))
	p := d.FindPlaceForLine(0)
	require.NotNil(t, p)
	assert.Equal(t, "p1", p.ID)
}
