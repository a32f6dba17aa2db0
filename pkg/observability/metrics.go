package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricReportersTotal   = "diggit.reporters.total"
	metricReporterDuration = "diggit.reporter.duration.seconds"
	metricCommentsTotal    = "diggit.comments.total"
	metricChangesetsTotal  = "diggit.changesets.walked.total"
	metricItemsetsTotal    = "diggit.itemsets.mined.total"
	metricMiningDuration   = "diggit.itemsets.mining.duration.seconds"
	metricSkipsTotal       = "diggit.pipeline.skips.total"

	attrReporter  = "reporter"
	attrStatus    = "status"
	attrAlgorithm = "algorithm"
	attrReason    = "reason"

	statusOK    = "ok"
	statusError = "error"
)

// durationBucketBoundaries covers 10ms to 600s: reporters on small diffs
// finish in milliseconds, itemset mining on large corpora takes minutes.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// AnalysisMetrics holds OTel instruments for pipeline and mining metrics.
// All Record methods are no-ops on a nil receiver.
type AnalysisMetrics struct {
	reportersTotal   metric.Int64Counter
	reporterDuration metric.Float64Histogram
	commentsTotal    metric.Int64Counter
	changesetsTotal  metric.Int64Counter
	itemsetsTotal    metric.Int64Counter
	miningDuration   metric.Float64Histogram
	skipsTotal       metric.Int64Counter
}

// NewAnalysisMetrics creates analysis metric instruments from the given meter.
func NewAnalysisMetrics(mt metric.Meter) (*AnalysisMetrics, error) {
	reporters, err := mt.Int64Counter(metricReportersTotal,
		metric.WithDescription("Reporter runs by reporter and status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricReportersTotal, err)
	}

	reporterDur, err := mt.Float64Histogram(metricReporterDuration,
		metric.WithDescription("Reporter run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricReporterDuration, err)
	}

	comments, err := mt.Int64Counter(metricCommentsTotal,
		metric.WithDescription("Comments emitted by reporter"),
		metric.WithUnit("{comment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommentsTotal, err)
	}

	changesets, err := mt.Int64Counter(metricChangesetsTotal,
		metric.WithDescription("New changesets discovered by history walks"),
		metric.WithUnit("{changeset}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricChangesetsTotal, err)
	}

	itemsets, err := mt.Int64Counter(metricItemsetsTotal,
		metric.WithDescription("Frequent itemsets mined by algorithm"),
		metric.WithUnit("{itemset}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricItemsetsTotal, err)
	}

	miningDur, err := mt.Float64Histogram(metricMiningDuration,
		metric.WithDescription("Itemset mining duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMiningDuration, err)
	}

	skips, err := mt.Int64Counter(metricSkipsTotal,
		metric.WithDescription("Pipeline runs skipped by reason"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSkipsTotal, err)
	}

	return &AnalysisMetrics{
		reportersTotal:   reporters,
		reporterDuration: reporterDur,
		commentsTotal:    comments,
		changesetsTotal:  changesets,
		itemsetsTotal:    itemsets,
		miningDuration:   miningDur,
		skipsTotal:       skips,
	}, nil
}

// RecordReporter records one reporter run.
func (am *AnalysisMetrics) RecordReporter(ctx context.Context, reporter string, duration time.Duration, comments int, err error) {
	if am == nil {
		return
	}

	status := statusOK
	if err != nil {
		status = statusError
	}

	am.reportersTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrReporter, reporter),
		attribute.String(attrStatus, status),
	))

	byReporter := metric.WithAttributes(attribute.String(attrReporter, reporter))
	am.reporterDuration.Record(ctx, duration.Seconds(), byReporter)
	am.commentsTotal.Add(ctx, int64(comments), byReporter)
}

// RecordChangesets records newly walked changesets.
func (am *AnalysisMetrics) RecordChangesets(ctx context.Context, count int) {
	if am == nil {
		return
	}

	am.changesetsTotal.Add(ctx, int64(count))
}

// RecordMining records one itemset mining run.
func (am *AnalysisMetrics) RecordMining(ctx context.Context, algorithm string, itemsets int, duration time.Duration) {
	if am == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrAlgorithm, algorithm))
	am.itemsetsTotal.Add(ctx, int64(itemsets), attrs)
	am.miningDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSkip records a pipeline run that skipped every reporter.
func (am *AnalysisMetrics) RecordSkip(ctx context.Context, reason string) {
	if am == nil {
		return
	}

	am.skipsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrReason, reason)))
}
