package dhcpsup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTracksPidAndRejectsDoubleStart(t *testing.T) {
	s := New("/bin/sleep")
	require.NoError(t, s.Start("5"))
	assert.True(t, s.Running())
	assert.NotZero(t, s.Pid())

	err := s.Start("5")
	assert.Error(t, err, "Start while already running must fail")

	require.NoError(t, s.Stop())
	waitReaped(t, s)
}

func TestStopOnIdleSupervisorIsNoop(t *testing.T) {
	s := New("/bin/true")
	assert.NoError(t, s.Stop())
}

func TestReapOnIdleSupervisorReportsNoExit(t *testing.T) {
	s := New("/bin/true")
	exited, err := s.Reap()
	assert.False(t, exited)
	assert.NoError(t, err)
}

func TestReapAfterNonZeroExitReportsError(t *testing.T) {
	s := New("/bin/false")
	require.NoError(t, s.Start("wlan0"))
	exited, err := waitReapedErr(t, s)
	assert.True(t, exited)
	assert.Error(t, err)
}

func TestReapAfterSIGTERMReportsSignalDeath(t *testing.T) {
	s := New("/bin/sleep")
	require.NoError(t, s.Start("30"))
	require.NoError(t, s.Stop())
	exited, err := waitReapedErr(t, s)
	assert.True(t, exited)
	assert.Error(t, err)
}

func waitReaped(t *testing.T, s *Supervisor) {
	t.Helper()
	waitReapedErr(t, s)
}

func waitReapedErr(t *testing.T, s *Supervisor) (bool, error) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		exited, err := s.Reap()
		if exited {
			return exited, err
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("child was never reaped")
	return false, nil
}
