// Package metrics exposes the coordinator's merge activity to Prometheus.
package metrics

import (
	"errors"
	"regexp"
	"strings"

	"github.com/multitest/report-harness/framework"
	"github.com/multitest/report-harness/report"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "report_harness"

	ResultMerged   = "merged"
	ResultRejected = "rejected"

	ErrorKindStructuralMismatch = "structural_mismatch"
	ErrorKindParse              = "parse"
	ErrorKindStore              = "store"
)

var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)

	partialsMergedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "partials_merged_total",
		Help:      "Count of partial reports submitted for merging, by result",
	}, []string{
		"result",
	})

	mergeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "merge_errors_total",
		Help:      "Count of partial reports that could not be merged, by kind of error",
	}, []string{
		"kind",
	})

	mergeDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "merge_duration_seconds",
		Help:      "Time taken to merge one partial report",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	reportCases = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "report_cases",
		Help:      "Number of test cases in the merged report, by status",
	}, []string{
		"status",
	})
)

// Recorder records merge results. A nil logger means no debug output.
type Recorder struct {
	logger framework.Logger
}

func NewRecorder(logger framework.Logger) *Recorder {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &Recorder{logger: logger}
}

// RecordMerge is usable as a report.MergeObserver.
func (r *Recorder) RecordMerge(result report.MergeResult) {
	mergeDurationSeconds.Observe(result.Duration.Seconds())
	if result.Err != nil {
		r.logger.Printf("metric inc m=partials_merged_total result=%s", ResultRejected)
		partialsMergedTotal.WithLabelValues(ResultRejected).Inc()
		r.RecordError(ErrorKind(result.Err))
	} else {
		r.logger.Printf("metric inc m=partials_merged_total result=%s", ResultMerged)
		partialsMergedTotal.WithLabelValues(ResultMerged).Inc()
	}
	r.RecordCases(result.Counter)
}

func (r *Recorder) RecordError(kind string) {
	r.logger.Printf("metric inc m=merge_errors_total kind=%s", kind)
	mergeErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordCases sets the case gauge for every status, including the ones that do not appear in
// counter.
func (r *Recorder) RecordCases(counter report.Counter) {
	for _, s := range report.AllStatuses() {
		reportCases.WithLabelValues(s.String()).Set(float64(counter[s]))
	}
}

// ErrorKind turns a merge error into a label value. Errors of kinds not known here are labeled
// with a cleaned-up form of their message.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "nil"
	case errors.Is(err, report.ErrStructuralMismatch):
		return ErrorKindStructuralMismatch
	}
	return errToLabel(err)
}

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ToLower(strings.TrimSpace(errClean))
	errClean = strings.Join(strings.Fields(errClean), "_")
	if errClean == "" {
		return "unknown"
	}
	return errClean
}
