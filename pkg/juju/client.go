// Package juju drives the external juju CLI: status queries, remote
// command execution on units, leadership queries, and the one-off
// logging-config reset. All calls are synchronous and fallible; any
// failure of the CLI itself is a FatalError.
package juju

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/jujutools/juju-wait/pkg/commandable"
)

// DefaultRunTimeout is the `juju run` safety ceiling. Remote commands are
// expected to return in well under a second; the generous limit only
// tolerates very slow connectivity.
const DefaultRunTimeout = 6 * time.Hour

// API is the surface of the juju CLI consumed by the waiter. It is
// satisfied by Client and fakeable in tests.
type API interface {
	Status() (*Status, error)
	LogTail(unit string) (string, error)
	IsLeader(unit string) (bool, error)
	ResetLoggingConfig() error
}

type Client struct {
	Command commandable.CommandFn
	Environ func() []string
	Log     logr.Logger
}

var _ API = &Client{}

func NewClient(log logr.Logger) *Client {
	return &Client{
		Command: exec.Command,
		Environ: os.Environ,
		Log:     log,
	}
}

// Status runs `juju status --format=json` and parses the result. Older
// juju releases have no --utc flag, so UTC timestamps are forced through
// the environment; JUJU_CLI_VERSION pins the 1.x CLI output shape.
func (c *Client) Status() (*Status, error) {
	env := append(c.Environ(), "TZ=UTC", "JUJU_CLI_VERSION=1")
	out, err := c.run(env, "status", "--format=json")
	if err != nil {
		return nil, err
	}
	status := &Status{}
	if err := json.Unmarshal([]byte(out), status); err != nil {
		return nil, &FatalError{
			Code: ExitInternalError,
			Err:  errors.Wrap(err, "parsing juju status output"),
		}
	}
	return status, nil
}

// Run executes a command on a unit via `juju run` and returns its stdout.
func (c *Client) Run(unit, command string, timeout time.Duration) (string, error) {
	timeoutArg := fmt.Sprintf("--timeout=%ds", int(timeout/time.Second))
	return c.run(nil, "run", timeoutArg, "--unit", unit, command)
}

// LogTail fetches the last line of a unit's agent log on the remote
// machine.
func (c *Client) LogTail(unit string) (string, error) {
	logFile := "unit-" + strings.Replace(unit, "/", "-", -1) + ".log"
	return c.Run(unit, "sudo tail -1 /var/log/juju/"+logFile, DefaultRunTimeout)
}

// IsLeader asks a unit whether it holds its service's leadership.
func (c *Client) IsLeader(unit string) (bool, error) {
	out, err := c.Run(unit, "is-leader --format=json", DefaultRunTimeout)
	if err != nil {
		return false, err
	}
	var isLeader bool
	if err := json.Unmarshal([]byte(out), &isLeader); err != nil {
		return false, &FatalError{
			Code: ExitInternalError,
			Err:  errors.Wrapf(err, "parsing is-leader output from %s", unit),
		}
	}
	return isLeader, nil
}

// ResetLoggingConfig restores the default stable logging config. Unit
// agents must log at INFO for log tail comparisons to reflect hook
// activity.
func (c *Client) ResetLoggingConfig() error {
	_, err := c.run(nil, "set-environment", "logging-config=juju=WARNING;unit=INFO")
	return err
}

// run invokes the juju binary. Stdout and stderr are kept separate:
// stderr often carries SSH noise (juju does no host key handling) that
// must not corrupt the output being parsed.
func (c *Client) run(env []string, args ...string) (string, error) {
	cmd := c.Command("juju", args...)
	if env != nil {
		// Append rather than replace: a substituted CommandFn may have
		// seeded cmd.Env, and later entries win.
		cmd.Env = append(cmd.Env, env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", c.classifyRunError(err, args, stderr.String())
	}
	return stdout.String(), nil
}

func (c *Client) classifyRunError(err error, args []string, stderr string) *FatalError {
	wrapped := errors.Wrapf(err, "juju %s failed", strings.Join(args, " "))
	code := ExitInternalError
	switch e := err.(type) {
	case *exec.ExitError:
		c.Log.Error(err, "juju command exited with an error",
			"args", args, "stderr", strings.TrimSpace(stderr))
		code = e.ExitCode()
		if code <= 0 {
			code = ExitCommandFailed
		}
	case *exec.Error, *fs.PathError:
		c.Log.Error(err, "juju could not be launched", "args", args)
		code = ExitNotLaunched
	default:
		c.Log.Error(err, "juju command failed", "args", args)
	}
	return &FatalError{Code: code, Err: wrapped}
}
