package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fboranek/mocksetup/pkg/project"
)

type mockFixture struct {
	mock.Mock
}

func (m *mockFixture) PID() int      { return m.Called().Int(0) }
func (m *mockFixture) Running() bool { return m.Called().Bool(0) }
func (m *mockFixture) Restart(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *mockFixture) Stop(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func run(f Fixture, p *project.Config, line string) (string, bool) {
	var buf bytes.Buffer
	quit := Execute(context.Background(), f, p, project.KeyCMakeArgs, line, &buf)
	return buf.String(), quit
}

func TestExecuteStatus(t *testing.T) {
	f := &mockFixture{}
	f.On("Running").Return(true).Once()
	f.On("PID").Return(4321).Once()

	out, quit := run(f, project.New("p"), "status")
	assert.False(t, quit)
	assert.Equal(t, "fixture running (pid 4321)\n", out)

	f.On("Running").Return(false).Once()
	out, _ = run(f, project.New("p"), "s")
	assert.Equal(t, "fixture not running\n", out)
	f.AssertExpectations(t)
}

func TestExecuteFlags(t *testing.T) {
	p := project.New("p")
	out, _ := run(&mockFixture{}, p, "flags")
	assert.Equal(t, "cmake_args is empty\n", out)

	p.Append(project.KeyCMakeArgs, "-DENABLE_MOCK_SERVER_TESTS=ON")
	out, _ = run(&mockFixture{}, p, "FLAGS")
	assert.Contains(t, out, "  -DENABLE_MOCK_SERVER_TESTS=ON\n")
}

func TestExecuteRestart(t *testing.T) {
	f := &mockFixture{}
	f.On("Restart", mock.Anything).Return(nil).Once()
	f.On("PID").Return(77)

	out, _ := run(f, project.New("p"), "restart")
	assert.Equal(t, "fixture restarted (pid 77)\n", out)

	f.On("Restart", mock.Anything).Return(errors.New("spawn failed")).Once()
	out, _ = run(f, project.New("p"), "r")
	assert.Equal(t, "restart failed: spawn failed\n", out)
	f.AssertExpectations(t)
}

func TestExecuteStopAndQuit(t *testing.T) {
	f := &mockFixture{}
	f.On("Stop", mock.Anything).Return(nil).Once()

	out, quit := run(f, project.New("p"), "stop")
	assert.False(t, quit)
	assert.Equal(t, "fixture stopped\n", out)
	f.AssertExpectations(t)

	for _, cmd := range []string{"quit", "exit", "q"} {
		_, quit = run(f, project.New("p"), cmd)
		assert.True(t, quit, cmd)
	}
}

func TestExecuteUnknownAndBlank(t *testing.T) {
	out, quit := run(&mockFixture{}, project.New("p"), "   ")
	assert.False(t, quit)
	assert.Empty(t, out)

	out, _ = run(&mockFixture{}, project.New("p"), "frobnicate now")
	assert.True(t, strings.HasPrefix(out, "unknown command: frobnicate"))

	out, _ = run(&mockFixture{}, project.New("p"), "help")
	assert.Contains(t, out, "restart")
}
