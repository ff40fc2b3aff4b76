package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/multitest/report-harness/data"
	"github.com/multitest/report-harness/framework/suite"
	"github.com/multitest/report-harness/store"

	"github.com/urfave/cli/v2"
)

const envVarPrefix = "REPORT_HARNESS"

var errNoPlan = errors.New("no plan was given")

func prefixEnvVar(name string) []string {
	return []string{envVarPrefix + "_" + name}
}

// commandParams holds every option of every command; each command reads only its own.
type commandParams struct {
	debug bool

	args []string
	out  string

	strict         bool
	skeletonFile   string
	sample         bool
	markIncomplete bool

	jUnitFile    string
	failuresOnly bool
	entries      bool
	depth        int

	port        int
	planName    string
	storeKind   string
	storeConfig store.Config
	runID       string
	replay      bool

	planFile       string
	filters        suite.RegexFilters
	parts          int
	part           int
	coordinatorURL string
	source         string
	debugOutput    bool
	skipFile       string
	recordFailures string
}

func readParams(c *cli.Context) (commandParams, error) {
	p := commandParams{
		debug:          c.Bool("debug"),
		args:           c.Args().Slice(),
		out:            c.String("out"),
		strict:         c.Bool("strict"),
		skeletonFile:   c.String("skeleton"),
		sample:         c.Bool("sample"),
		markIncomplete: c.Bool("mark-incomplete"),
		jUnitFile:      c.String("junit"),
		failuresOnly:   c.Bool("failures-only"),
		entries:        c.Bool("entries"),
		depth:          c.Int("depth"),
		port:           c.Int("port"),
		planName:       c.String("plan-name"),
		storeKind:      c.String("store"),
		storeConfig: store.Config{
			Prefix:           c.String("store-prefix"),
			RedisURL:         c.String("redis-url"),
			ConsulAddress:    c.String("consul-address"),
			DynamoDBTable:    c.String("dynamodb-table"),
			DynamoDBRegion:   c.String("dynamodb-region"),
			DynamoDBEndpoint: c.String("dynamodb-endpoint"),
		},
		runID:          c.String("run-id"),
		replay:         c.Bool("replay"),
		planFile:       c.String("plan"),
		parts:          c.Int("parts"),
		part:           c.Int("part"),
		coordinatorURL: c.String("coordinator"),
		source:         c.String("source"),
		debugOutput:    c.Bool("debug-output"),
		skipFile:       c.String("skip-from"),
		recordFailures: c.String("record-failures"),
	}
	if v, ok := c.Generic("run").(*suite.TestIDPatternList); ok && v != nil {
		p.filters.MustMatch = *v
	}
	if v, ok := c.Generic("skip").(*suite.TestIDPatternList); ok && v != nil {
		p.filters.MustNotMatch = *v
	}
	if p.depth < 0 {
		return p, fmt.Errorf("--depth must not be negative")
	}
	return p, nil
}

func (p commandParams) validatePart() error {
	if p.parts < 1 {
		return fmt.Errorf("--parts must be at least 1")
	}
	if p.part < 1 || p.part > p.parts {
		return fmt.Errorf("--part must be between 1 and %d", p.parts)
	}
	return nil
}

// loadPlan reads --plan, or the built-in plan with --sample.
func (p commandParams) loadPlan(planFile string) (data.PlanDefinition, error) {
	switch {
	case p.sample && planFile != "":
		return data.PlanDefinition{}, fmt.Errorf("a plan file cannot be used with --sample")
	case p.sample:
		return data.SamplePlan()
	case planFile != "":
		return data.LoadPlanFile(planFile)
	default:
		return data.PlanDefinition{}, errNoPlan
	}
}

// The flags are built for each App, since the filter flags hold their values in the flag.

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "enable debug logging",
			EnvVars: prefixEnvVar("DEBUG"),
		},
	}
}

func outFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Usage:   usage,
		EnvVars: prefixEnvVar("OUT"),
	}
}

func junitFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "junit",
		Usage:   "also write JUnit XML output to the specified path",
		EnvVars: prefixEnvVar("JUNIT"),
	}
}

func strictFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "strict",
		Usage:   "reject partial reports whose results conflict with ones already merged",
		EnvVars: prefixEnvVar("STRICT"),
	}
}

func skeletonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "skeleton",
			Usage:   "plan file (JSON or YAML) whose skeleton is the starting point of the merge",
			EnvVars: prefixEnvVar("SKELETON"),
		},
		&cli.BoolFlag{
			Name:  "sample",
			Usage: "use the built-in sample plan",
		},
	}
}

func mergeFlags() []cli.Flag {
	return append([]cli.Flag{
		strictFlag(),
		outFlag("write the merged report to this file instead of standard output"),
		junitFlag(),
		&cli.BoolFlag{
			Name:  "mark-incomplete",
			Usage: "mark every case that did not finish as incomplete",
		},
	}, skeletonFlags()...)
}

func showFlags() []cli.Flag {
	return []cli.Flag{
		junitFlag(),
		&cli.BoolFlag{
			Name:  "failures-only",
			Usage: "only show nodes that did not pass",
		},
		&cli.BoolFlag{
			Name:  "entries",
			Usage: "show assertions and logs of cases that did not pass",
		},
		&cli.IntFlag{
			Name:  "depth",
			Usage: "number of levels of the tree to show, or 0 for all",
		},
	}
}

func planFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "plan",
			Usage:   "plan file (JSON or YAML)",
			EnvVars: prefixEnvVar("PLAN"),
		},
		&cli.BoolFlag{
			Name:  "sample",
			Usage: "use the built-in sample plan",
		},
	}
}

func skeletonCommandFlags() []cli.Flag {
	return append(planFlags(), outFlag("write the skeleton to this file instead of standard output"))
}

func serveFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Value:   defaultPort,
			Usage:   "port that the coordinator will listen on",
			EnvVars: prefixEnvVar("PORT"),
		},
		&cli.StringFlag{
			Name:    "plan-name",
			Usage:   "name of the merged report, if there is no skeleton",
			Value:   "report",
			EnvVars: prefixEnvVar("PLAN_NAME"),
		},
		strictFlag(),
		outFlag("write the merged report to this file when the coordinator stops"),
		&cli.StringFlag{
			Name:    "store",
			Value:   store.KindMemory,
			Usage:   "where submitted partials are kept: " + strings.Join(store.Kinds(), ", "),
			EnvVars: prefixEnvVar("STORE"),
		},
		&cli.StringFlag{
			Name:    "store-prefix",
			Value:   store.DefaultPrefix,
			Usage:   "prefix of every key written to the store",
			EnvVars: prefixEnvVar("STORE_PREFIX"),
		},
		&cli.StringFlag{
			Name:    "run-id",
			Usage:   "identifies this run's partials in the store",
			EnvVars: prefixEnvVar("RUN_ID"),
		},
		&cli.BoolFlag{
			Name:    "replay",
			Value:   true,
			Usage:   "merge the partials already in the store on startup",
			EnvVars: prefixEnvVar("REPLAY"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Value:   "redis://localhost:6379",
			EnvVars: prefixEnvVar("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "consul-address",
			Value:   "localhost:8500",
			EnvVars: prefixEnvVar("CONSUL_ADDRESS"),
		},
		&cli.StringFlag{
			Name:    "dynamodb-table",
			Value:   store.DefaultDynamoDBTable,
			EnvVars: prefixEnvVar("DYNAMODB_TABLE"),
		},
		&cli.StringFlag{
			Name:    "dynamodb-region",
			EnvVars: prefixEnvVar("DYNAMODB_REGION"),
		},
		&cli.StringFlag{
			Name:    "dynamodb-endpoint",
			EnvVars: prefixEnvVar("DYNAMODB_ENDPOINT"),
		},
	}, skeletonFlags()...)
}

func runFlags() []cli.Flag {
	return append(planFlags(),
		&cli.GenericFlag{
			Name:  "run",
			Value: &suite.TestIDPatternList{},
			Usage: "regex pattern(s) to select tests to run",
		},
		&cli.GenericFlag{
			Name:  "skip",
			Value: &suite.TestIDPatternList{},
			Usage: "regex pattern(s) to select tests not to run",
		},
		&cli.IntFlag{
			Name:    "parts",
			Value:   1,
			Usage:   "number of workers the plan is divided among",
			EnvVars: prefixEnvVar("PARTS"),
		},
		&cli.IntFlag{
			Name:    "part",
			Value:   1,
			Usage:   "which of the parts this worker runs, starting at 1",
			EnvVars: prefixEnvVar("PART"),
		},
		&cli.StringFlag{
			Name:    "coordinator",
			Usage:   "coordinator URL to submit the partial report to",
			EnvVars: prefixEnvVar("COORDINATOR"),
		},
		&cli.StringFlag{
			Name:    "source",
			Usage:   "name of this worker, sent with the partial report",
			EnvVars: prefixEnvVar("SOURCE"),
		},
		outFlag("write the partial report to this file"),
		&cli.BoolFlag{
			Name:  "debug-output",
			Usage: "show debug output of failed tests",
		},
		&cli.StringFlag{
			Name:  "skip-from",
			Usage: "file of test IDs to skip, one per line, as written by --record-failures",
		},
		&cli.StringFlag{
			Name:  "record-failures",
			Usage: "write the IDs of tests that neither passed nor were skipped to this file",
		},
	)
}
