package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/multitest/report-harness/framework"

	"github.com/urfave/cli/v2"
)

const (
	defaultPort        = 8111
	statusQueryTimeout = time.Second * 10
)

// Exit codes
const (
	exitSuccess      = 0
	exitTestFailure  = 1
	exitRuntimeError = 2
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// notPassedError means the command did its work but the report it produced did not pass.
type notPassedError struct {
	message string
}

func (e notPassedError) Error() string { return e.message }

func main() {
	app := newApp(os.Stdout, os.Stderr)
	os.Exit(exitCode(app.Run(os.Args), os.Stderr))
}

func exitCode(err error, errOut io.Writer) int {
	if err == nil {
		return exitSuccess
	}
	var np notPassedError
	if errors.As(err, &np) {
		_, _ = fmt.Fprintln(errOut, np.message)
		return exitTestFailure
	}
	_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
	return exitRuntimeError
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "report-harness",
		Usage:     "run, merge and inspect multitest reports",
		Version:   version,
		Writer:    out,
		ErrWriter: errOut,
		Flags:     globalFlags(),
		// main decides the exit code
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:      "merge",
				Usage:     "merge partial reports into one",
				ArgsUsage: "PATH...",
				Flags:     mergeFlags(),
				Action:    withParams(runMerge),
			},
			{
				Name:      "show",
				Usage:     "print a report as a tree and a summary table",
				ArgsUsage: "REPORT",
				Flags:     showFlags(),
				Action:    withParams(runShow),
			},
			{
				Name:   "skeleton",
				Usage:  "write the empty report of a plan",
				Flags:  skeletonCommandFlags(),
				Action: withParams(runSkeleton),
			},
			{
				Name:   "serve",
				Usage:  "run a coordinator that merges the partial reports workers submit",
				Flags:  serveFlags(),
				Action: withParams(runServe),
			},
			{
				Name:   "run",
				Usage:  "run a part of a plan and produce its partial report",
				Flags:  runFlags(),
				Action: withParams(runPlan),
			},
		},
	}
}

type commandAction func(c *cli.Context, params commandParams, logger framework.Logger) error

func withParams(action commandAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		params, err := readParams(c)
		if err != nil {
			return err
		}
		logger := framework.NullLogger()
		if params.debug {
			logger = log.New(c.App.ErrWriter, "", log.LstdFlags)
		}
		return action(c, params, logger)
	}
}
