package launch

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnBuildsEmulatorCommand(t *testing.T) {
	var gotName string
	var gotArgs []string
	s := NewSupervisor("xterm -hold -e")
	s.command = func(name string, args ...string) *exec.Cmd {
		gotName, gotArgs = name, args
		return exec.Command("true")
	}

	p, err := s.Spawn("gdb", "gdb -q /tmp/target")
	require.NoError(t, err)
	<-p.Done()

	assert.Equal(t, "xterm", gotName)
	assert.Equal(t, []string{"-hold", "-e", "sh", "-c", "gdb -q /tmp/target"}, gotArgs)
	assert.Equal(t, "gdb", p.Name)
	assert.NotEmpty(t, p.ID)
}

func TestSpawnExitIsTracked(t *testing.T) {
	exited := make(chan *Process, 1)
	s := NewSupervisor("env", WithExitCallback(func(p *Process) { exited <- p }))

	p, err := s.Spawn("lldb", "exit 3")
	require.NoError(t, err)

	select {
	case got := <-exited:
		assert.Equal(t, p.ID, got.ID)
		assert.Error(t, got.Err())
	case <-time.After(5 * time.Second):
		t.Fatal("exit callback not called")
	}
	require.Eventually(t, func() bool { return s.Count() == 0 }, 5*time.Second, time.Millisecond)

	_, err = s.Get(p.ID)
	assert.ErrorIs(t, err, ErrProcessNotFound)
}

func TestShutdownTerminatesAll(t *testing.T) {
	s := NewSupervisor("env")

	a, err := s.Spawn("gdb", "sleep 30")
	require.NoError(t, err)
	b, err := s.Spawn("gdb", "sleep 30")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Count())
	assert.True(t, a.Running())

	s.Shutdown(2 * time.Second)
	assert.Equal(t, 0, s.Count())
	assert.False(t, a.Running())
	assert.False(t, b.Running())

	_, err = s.Spawn("gdb", "true")
	assert.ErrorIs(t, err, ErrSupervisorShutdown)
	s.Shutdown(time.Second)
}

func TestSpawnMissingEmulator(t *testing.T) {
	s := NewSupervisor("/nonexistent/terminal -e")
	_, err := s.Spawn("gdb", "true")
	assert.Error(t, err)
	assert.Equal(t, 0, s.Count())
}

func TestTerminateUnknown(t *testing.T) {
	s := NewSupervisor("")
	assert.ErrorIs(t, s.Terminate("nope"), ErrProcessNotFound)
	assert.Equal(t, []string{"x-terminal-emulator", "-e"}, s.emulator)
}
