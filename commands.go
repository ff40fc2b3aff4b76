package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/multitest/report-harness/coordinator"
	"github.com/multitest/report-harness/data"
	"github.com/multitest/report-harness/export"
	"github.com/multitest/report-harness/framework"
	"github.com/multitest/report-harness/framework/harness"
	"github.com/multitest/report-harness/framework/helpers"
	"github.com/multitest/report-harness/framework/suite"
	"github.com/multitest/report-harness/report"
	"github.com/multitest/report-harness/store"

	"github.com/urfave/cli/v2"
)

const shutdownTimeout = time.Second * 5

func runMerge(c *cli.Context, params commandParams, logger framework.Logger) error {
	if len(params.args) == 0 {
		return errors.New("no report files or directories were given")
	}
	partials, err := data.LoadReports(params.args...)
	if err != nil {
		return err
	}
	if len(partials) == 0 {
		return errors.New("no reports were found")
	}

	target, err := params.skeleton()
	if err != nil {
		return err
	}
	if target == nil {
		target = report.New(partials[0].Name())
	}
	merger, err := report.NewMerger(target, report.MergerStrict(params.strict), report.MergerLogger(logger))
	if err != nil {
		return err
	}
	for i, p := range partials {
		if err := merger.Merge(fmt.Sprintf("partial %d", i+1), p); err != nil {
			return err
		}
	}
	merged := merger.Snapshot()
	if params.markIncomplete {
		if n := merged.MarkIncomplete(); n > 0 {
			helpers.MustFprintf(c.App.ErrWriter, "Marked %d unfinished test case(s) as incomplete\n", n)
		}
	}

	// without --out, standard output carries the report
	summaryOut := helpers.IfElse(params.out == "", c.App.ErrWriter, c.App.Writer)
	if params.out == "" {
		if err := export.WriteJSON(c.App.Writer, merged, true); err != nil {
			return err
		}
	} else if err := writeReportFile(params.out, merged); err != nil {
		return err
	}
	helpers.MustFprintln(summaryOut, export.RenderSummaryTable(merged))
	if err := writeJUnitFile(params.jUnitFile, merged); err != nil {
		return err
	}
	return checkPassed(merged)
}

func runShow(c *cli.Context, params commandParams, logger framework.Logger) error {
	if len(params.args) != 1 {
		return errors.New("expected exactly one report file")
	}
	r, err := data.LoadReportFile(params.args[0])
	if err != nil {
		return err
	}
	export.PrintTree(c.App.Writer, r, export.ConsoleOptions{
		FailuresOnly: params.failuresOnly,
		Entries:      params.entries,
		MaxDepth:     params.depth,
	})
	helpers.MustFprintln(c.App.Writer)
	helpers.MustFprintln(c.App.Writer, export.RenderSummaryTable(r))
	if err := report.FindIncomplete(r); err != nil {
		helpers.MustFprintf(c.App.ErrWriter, "Warning: %s\n", err)
	}
	if err := writeJUnitFile(params.jUnitFile, r); err != nil {
		return err
	}
	return checkPassed(r)
}

func runSkeleton(c *cli.Context, params commandParams, logger framework.Logger) error {
	plan, err := params.loadPlan(params.planFile)
	if err != nil {
		return err
	}
	skeleton, err := plan.BuildSkeleton()
	if err != nil {
		return err
	}
	logger.Printf("Plan %q has %d test case(s)", plan.Name, skeleton.Counter().Total())
	if params.out != "" {
		return writeReportFile(params.out, skeleton)
	}
	return export.WriteJSON(c.App.Writer, skeleton, true)
}

func runServe(c *cli.Context, params commandParams, logger framework.Logger) error {
	target, err := params.skeleton()
	if err != nil {
		return err
	}
	partialStore, err := store.Open(params.storeKind, params.storeConfig, framework.LoggerWithPrefix(logger, "[store] "))
	if err != nil {
		return err
	}
	defer func() { _ = partialStore.Close() }()

	coord, err := coordinator.New(coordinator.Config{
		Plan:       params.planName,
		Strict:     params.strict,
		Target:     target,
		Store:      partialStore,
		RunID:      params.runID,
		Persistent: params.storeKind != store.KindMemory,
		Logger:     framework.LoggerWithPrefix(logger, "[coordinator] "),
	})
	if err != nil {
		return err
	}
	defer func() { _ = coord.Close() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if params.replay {
		if _, err := coord.Replay(ctx); err != nil {
			return fmt.Errorf("failed to replay stored partials: %w", err)
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", params.port),
		Handler:           coord.Handler(),
		ReadHeaderTimeout: time.Second * 10,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()
	helpers.MustFprintf(c.App.Writer, "Coordinator listening on port %d\n", params.port)

	select {
	case err := <-serverErrCh:
		return err
	case <-coord.Stopped():
		helpers.MustFprintln(c.App.Writer, "Coordinator was stopped by request")
	case <-ctx.Done():
		helpers.MustFprintln(c.App.Writer, "Coordinator is shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Error shutting down HTTP server: %s", err)
	}

	merged := coord.Report()
	if params.out != "" {
		if err := writeReportFile(params.out, merged); err != nil {
			return err
		}
	}
	helpers.MustFprintln(c.App.Writer, export.RenderSummaryTable(merged))
	return checkPassed(merged)
}

func runPlan(c *cli.Context, params commandParams, logger framework.Logger) error {
	if err := params.validatePart(); err != nil {
		return err
	}
	plan, err := params.loadPlan(params.planFile)
	if err != nil {
		return err
	}
	multitests, err := plan.MultiTests()
	if err != nil {
		return err
	}
	if params.skipFile != "" {
		if err := loadSuppressions(params.skipFile, &params.filters); err != nil {
			return err
		}
	}

	partFilter := suite.Partition(params.parts, multitests...)[params.part-1]
	filter := params.filters.AsFilter().And(partFilter)
	suite.PrintFilterDescription(c.App.Writer, params.filters, params.part-1, params.parts)

	source := params.source
	if source == "" {
		source = fmt.Sprintf("part-%d-of-%d", params.part, params.parts)
	}
	partial, err := suite.Run(c.Context, suite.Configuration{
		Filter: filter,
		TestLogger: suite.ConsoleTestLogger{
			DebugOutputOnFailure: params.debugOutput,
		},
		Meta: map[string]string{
			"source": source,
			"part":   strconv.Itoa(params.part),
			"parts":  strconv.Itoa(params.parts),
		},
	}, plan.Name, multitests...)
	if err != nil {
		return err
	}
	helpers.MustFprintln(c.App.Writer)
	suite.PrintResults(partial)

	if params.out != "" {
		if err := writeReportFile(params.out, partial); err != nil {
			return err
		}
	}
	if params.recordFailures != "" {
		if err := writeFile(params.recordFailures, func(w io.Writer) error { return writeFailures(w, partial) }); err != nil {
			return err
		}
	}
	if params.coordinatorURL != "" {
		client, err := harness.NewClient(params.coordinatorURL, statusQueryTimeout, logger, c.App.Writer)
		if err != nil {
			return err
		}
		location, err := client.SubmitPartial(partial, source)
		if err != nil {
			return fmt.Errorf("failed to submit partial report: %w", err)
		}
		helpers.MustFprintf(c.App.Writer, "Submitted partial report: %s\n", location)
	}
	return checkPassed(partial)
}

// loadSuppressions adds a filter that skips each test ID listed in the file. Every level of an ID
// must match exactly.
func loadSuppressions(path string, filters *suite.RegexFilters) error {
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("cannot open provided suppression file: %w", err)
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		levels := strings.Split(line, "/")
		for i, level := range levels {
			levels[i] = "^" + regexp.QuoteMeta(level) + "$"
		}
		if err := filters.MustNotMatch.Set(strings.Join(levels, "/")); err != nil {
			return fmt.Errorf("cannot parse suppression: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("while processing suppression file: %w", err)
	}
	return nil
}

// writeFailures writes the test ID of every case in r that neither passed nor was skipped, one
// per line.
func writeFailures(w io.Writer, r *report.Report) error {
	for path, c := range report.Cases(r) {
		if s := c.Status(); s == report.StatusPassed || s == report.StatusSkipped {
			continue
		}
		// the first element is the plan, which is not part of a test ID
		ids := make([]string, 0, len(path)-1)
		for _, uid := range path[1:] {
			ids = append(ids, string(uid))
		}
		if _, err := fmt.Fprintln(w, strings.Join(ids, "/")); err != nil {
			return err
		}
	}
	return nil
}

// skeleton returns the skeleton of --skeleton or --sample, or nil if neither was given.
func (p commandParams) skeleton() (*report.Report, error) {
	plan, err := p.loadPlan(p.skeletonFile)
	if errors.Is(err, errNoPlan) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return plan.BuildSkeleton()
}

func checkPassed(r *report.Report) error {
	switch r.Status() {
	case report.StatusPassed, report.StatusSkipped:
		return nil
	}
	return notPassedError{message: fmt.Sprintf("Report %q did not pass: %s", r.Name(), r.Status())}
}

func writeReportFile(path string, r *report.Report) error {
	return writeFile(path, func(w io.Writer) error { return export.WriteJSON(w, r, true) })
}

func writeJUnitFile(path string, r *report.Report) error {
	if path == "" {
		return nil
	}
	return writeFile(path, func(w io.Writer) error { return export.WriteJUnit(w, r) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("cannot create %q: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("error writing %q: %w", path, err)
	}
	return f.Close()
}
