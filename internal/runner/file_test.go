package runner_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/callwatch/internal/callstate"
	"github.com/sweeney/callwatch/internal/reporter"
	"github.com/sweeney/callwatch/internal/runner"
)

func TestFileRunnerReplaysLog(t *testing.T) {
	mem := reporter.NewMemory()
	fr := runner.NewFileRunner(mem, callstate.Strict())

	require.NoError(t, fr.Run(filepath.Join("testdata", "ab_success.json")))

	got := mem.Notifications()
	require.Len(t, got, 3)

	assert.Equal(t, reporter.KindBDial, got[0].Kind)
	assert.Equal(t, "201", got[0].Caller.CallerID.Number)
	require.Len(t, got[0].Targets, 1)
	assert.Equal(t, "202", got[0].Targets[0].CallerID.Number)

	assert.Equal(t, reporter.KindUp, got[1].Kind)
	require.NotNil(t, got[1].Target)
	assert.Equal(t, "202", got[1].Target.CallerID.Number)

	assert.Equal(t, reporter.KindHangup, got[2].Kind)
	assert.Equal(t, "201", got[2].Caller.CallerID.Number)
	assert.Equal(t, callstate.ReasonCompleted, got[2].Reason)

	assert.Equal(t, 15, mem.EventCount())
}

func TestFileRunnerFreshEnginePerRun(t *testing.T) {
	mem := reporter.NewMemory()
	fr := runner.NewFileRunner(mem, callstate.Strict())

	path := filepath.Join("testdata", "ab_success.json")
	require.NoError(t, fr.Run(path))
	require.NoError(t, fr.Run(path))

	// A second replay of the same capture must behave identically, so
	// no state survived the first run.
	got := mem.Notifications()
	require.Len(t, got, 6)
	assert.Equal(t, got[:3], got[3:])
}

func TestFileRunnerMissingFile(t *testing.T) {
	fr := runner.NewFileRunner(reporter.NewMemory())
	err := fr.Run(filepath.Join("testdata", "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replaying")
}
