package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blang/vfs"
	flags "github.com/jessevdk/go-flags"

	"github.com/jujutools/juju-wait/pkg/envconfig"
	"github.com/jujutools/juju-wait/pkg/juju"
	"github.com/jujutools/juju-wait/pkg/wait"
	"github.com/jujutools/juju-wait/pkg/waitlog"
)

const description = `Wait for environment steady state.

The environment is considered in a steady state once all hooks have
completed running and there are no hooks queued to run, on all units.

If you need a timeout, use the timeout(1) tool.`

type Options struct {
	Environment string `short:"e" long:"environment" value-name:"ENV" description:"Operate on the given juju environment"`
	Description bool   `long:"description" description:"Print a one-line description and exit"`
	Quiet       bool   `short:"q" long:"quiet" description:"Only log warnings and errors"`
	Verbose     bool   `short:"v" long:"verbose" description:"Log debug detail"`
}

func main() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

func Run(args []string, stdout, stderr io.Writer) (status int) {
	options := Options{}
	rest, err := flags.ParseArgs(&options, args)
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return 0
	} else if err != nil {
		return 1 // ParseArgs() will have printed the error already.
	}
	// Answered before argument validation, matching how plugin discovery
	// probes subcommands.
	if options.Description {
		fmt.Fprintln(stdout, strings.SplitN(description, "\n", 2)[0])
		return 0
	}
	if len(rest) > 0 {
		fmt.Fprintln(stderr, "Unexpected argument(s):", rest)
		return 1
	}

	if options.Environment != "" {
		// Child juju invocations pick the environment up from here.
		os.Setenv("JUJU_ENV", options.Environment)
	}

	log := waitlog.ForProd(waitlog.Level(options.Quiet, options.Verbose)).WithName("jujuWait")

	environment, err := envconfig.NewReader(vfs.OS(), os.Getenv).CurrentEnvironment()
	if err != nil {
		log.Error(err, "could not resolve the current environment")
	}
	log.Info("waiting for environment steady state", "environment", environment)

	waiter := wait.New(juju.NewClient(log.WithName("juju")), log)
	if err := waiter.Wait(); err != nil {
		log.Error(err, "environment failed to reach steady state")
		return juju.ExitCode(err)
	}
	return 0
}
