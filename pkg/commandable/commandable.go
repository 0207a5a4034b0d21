// Package commandable provides a fakeable implementation of exec.Command.
//
// Production code takes a commandable.CommandFn dependency (normally
// exec.Command). Tests substitute the Command method of a CommandFake,
// which re-runs the test binary as a helper process instead of the real
// program. See https://npf.io/2015/06/testing-exec-command/ and
// os/exec/exec_test.go for the technique.
//
// The test package using a CommandFake must declare:
//
//	func TestHelperProcess(t *testing.T) {
//		commandable.HelperProcess()
//	}
package commandable

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"reflect"
	"strconv"
	"strings"

	"github.com/onsi/gomega/gbytes"
)

type (
	CommandFn func(name string, args ...string) *exec.Cmd
	Matcher   func(name string, args ...string) bool
)

var _ CommandFn = exec.Command

// CommandFake builds exec.Cmd substitutes. Behavior is configured on the
// fallback (FakeOutput et al.) or per command line (ExpectCommand).
type CommandFake struct {
	fallback     *ExpectedCommand
	expectations []*ExpectedCommand
}

func NewFakeCommand() *CommandFake {
	return &CommandFake{fallback: &ExpectedCommand{}}
}

// Command is the CommandFn to inject into the code under test.
func (f *CommandFake) Command(name string, args ...string) *exec.Cmd {
	for i := len(f.expectations) - 1; i >= 0; i-- {
		e := f.expectations[i]
		if e.matcher(name, args...) {
			return e.fakeExecCommand(name, args...)
		}
	}
	return f.fallback.fakeExecCommand(name, args...)
}

func (f *CommandFake) FakeOutput(stdout string) *CommandFake {
	f.fallback.stdout = stdout
	return f
}

func (f *CommandFake) FakeErrOutput(stderr string) *CommandFake {
	f.fallback.stderr = stderr
	return f
}

func (f *CommandFake) FakeStatus(status int) *CommandFake {
	f.fallback.status = status
	return f
}

// ExpectCommand overrides the fake's behavior for an exact command line.
// The most recently added matching expectation wins.
func (f *CommandFake) ExpectCommand(expectedName string, expectedArgs ...string) *ExpectedCommand {
	return f.ExpectCommandMatching(func(name string, args ...string) bool {
		return name == expectedName && reflect.DeepEqual(args, expectedArgs)
	})
}

func (f *CommandFake) ExpectCommandMatching(matcher Matcher) *ExpectedCommand {
	e := &ExpectedCommand{matcher: matcher}
	f.expectations = append(f.expectations, e)
	return e
}

type ExpectedCommand struct {
	matcher Matcher

	stdout     string
	stderr     string
	status     int
	calls      *int
	sideEffect func()
	envChan    chan<- []string

	args *gbytes.Buffer
	cmd  *exec.Cmd
}

func (e *ExpectedCommand) PrintsOutput(stdout string) *ExpectedCommand {
	e.stdout = stdout
	return e
}

func (e *ExpectedCommand) PrintsError(stderr string) *ExpectedCommand {
	e.stderr = stderr
	return e
}

func (e *ExpectedCommand) ReturnsStatus(status int) *ExpectedCommand {
	e.status = status
	return e
}

// CallCounter increments *counter each time a matching command is run
// (not merely constructed).
func (e *ExpectedCommand) CallCounter(counter *int) *ExpectedCommand {
	e.calls = counter
	return e
}

func (e *ExpectedCommand) SideEffect(sideEffect func()) *ExpectedCommand {
	e.sideEffect = sideEffect
	return e
}

// SendEnvironment delivers cmd.Env for each matching run over envs. The
// environment is only known once the caller has run the command, so this
// cannot be captured at construction time.
func (e *ExpectedCommand) SendEnvironment(envs chan<- []string) *ExpectedCommand {
	e.envChan = envs
	return e
}

// CapturedArgs returns the space-joined command line of the last matching
// run, or "" if the command never ran.
func (e *ExpectedCommand) CapturedArgs() string {
	if e.args == nil {
		return ""
	}
	return string(e.args.Contents())
}

func (e *ExpectedCommand) fakeExecCommand(name string, args ...string) *exec.Cmd {
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}

	cmdArgs := []string{"-test.run=TestHelperProcess", "--", name}
	cmdArgs = append(cmdArgs, args...)
	cmd := exec.Command(os.Args[0], cmdArgs...)
	cmd.Env = []string{
		"GO_WANT_HELPER_PROCESS=1",
		"FAKE_STATUS=" + strconv.Itoa(e.status),
		"FAKE_RESULT=" + e.stdout,
		"FAKE_ERR_RESULT=" + e.stderr,
	}
	cmd.ExtraFiles = []*os.File{w}

	e.args = gbytes.NewBuffer()
	e.cmd = cmd
	// Wait() is documented to wait for copying from Stdin to complete, so
	// the recorder's bookkeeping finishes before the caller's Run()/Wait()
	// returns. The helper process never reads stdin.
	cmd.Stdin = &runRecorder{expected: e, argsRead: r, argsWrite: w}
	return cmd
}

// runRecorder rides the exec.Cmd stdin copier to observe the helper
// process. Read drains the args pipe (EOF means the helper has exited),
// performs the expectation's bookkeeping, and ends the stdin copy without
// ever delivering input.
type runRecorder struct {
	expected            *ExpectedCommand
	argsRead, argsWrite *os.File
	recorded            bool
}

func (rec *runRecorder) Read([]byte) (int, error) {
	if rec.recorded {
		return 0, io.EOF
	}
	rec.recorded = true

	// The helper holds its own dup of the write end before Start() launches
	// the copier goroutines; drop ours so its exit produces EOF.
	rec.argsWrite.Close()
	e := rec.expected
	io.Copy(e.args, rec.argsRead) //nolint:errcheck
	rec.argsRead.Close()

	if e.calls != nil {
		*e.calls++
	}
	if e.envChan != nil {
		e.envChan <- e.cmd.Env
	}
	if e.sideEffect != nil {
		e.sideEffect()
	}
	return 0, io.EOF
}

// HelperProcess implements the child side of the fake. It must be invoked
// from a TestHelperProcess test in any package whose tests run fake
// commands; it is a no-op under a normal `go test` invocation.
func HelperProcess() {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	pipe := os.NewFile(3, "args pipe")
	fmt.Fprint(pipe, strings.Join(os.Args[3:], " "))

	fmt.Print(os.Getenv("FAKE_RESULT"))
	fmt.Fprint(os.Stderr, os.Getenv("FAKE_ERR_RESULT"))

	status, err := strconv.Atoi(os.Getenv("FAKE_STATUS"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error parsing FAKE_STATUS:", err)
		status = -127
	}
	os.Exit(status)
}
