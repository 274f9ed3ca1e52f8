package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/0x0BSoD/newsPipeline/internal/fetcher"
	"github.com/0x0BSoD/newsPipeline/internal/lease"
	"github.com/0x0BSoD/newsPipeline/internal/metrics"
)

const (
	StageCollector  = "collector"
	StageSummarizer = "summarizer"
	StageTagger     = "tagger"
	StagePublisher  = "publisher"
	StagePipeline   = "pipeline"
)

var ErrUnknownStage = errors.New("unknown stage")

type Collector interface {
	Run(ctx context.Context) (fetcher.Result, error)
}

type Runner interface {
	Run(ctx context.Context) (int, error)
}

type Notifier interface {
	StageFailed(stage string, err error)
}

type Report struct {
	Fetched    int `json:"fetched"`
	Inserted   int `json:"inserted"`
	Summarized int `json:"summarized"`
	Tagged     int `json:"tagged"`
	Published  int `json:"published"`
}

type Pipeline struct {
	collector  Collector
	summarizer Runner
	tagger     Runner
	publisher  Runner

	locker   lease.Locker
	notifier Notifier
}

func New(
	collector Collector,
	summarizer Runner,
	tagger Runner,
	publisher Runner,
	locker lease.Locker,
	notifier Notifier,
) *Pipeline {
	if locker == nil {
		locker = lease.NewLocal()
	}
	return &Pipeline{
		collector:  collector,
		summarizer: summarizer,
		tagger:     tagger,
		publisher:  publisher,
		locker:     locker,
		notifier:   notifier,
	}
}

// Run executes every stage in order. A failed stage counts as zero and the
// next stage still runs.
func (p *Pipeline) Run(ctx context.Context) Report {
	started := time.Now()
	var report Report

	if res, err := p.Collect(ctx); err == nil {
		report.Fetched, report.Inserted = res.Fetched, res.Inserted
	}
	report.Summarized, _ = p.Summarize(ctx)
	report.Tagged, _ = p.Tag(ctx)
	report.Published, _ = p.Publish(ctx)

	slog.Info("pipeline finished",
		"fetched", report.Fetched,
		"inserted", report.Inserted,
		"summarized", report.Summarized,
		"tagged", report.Tagged,
		"published", report.Published,
		"took", time.Since(started).Round(time.Millisecond),
	)

	return report
}

// RunStage runs a single stage by name, or the whole pipeline for "pipeline".
func (p *Pipeline) RunStage(ctx context.Context, stage string) (Report, error) {
	var (
		report Report
		err    error
	)

	switch stage {
	case StageCollector:
		var res fetcher.Result
		res, err = p.Collect(ctx)
		report.Fetched, report.Inserted = res.Fetched, res.Inserted
	case StageSummarizer:
		report.Summarized, err = p.Summarize(ctx)
	case StageTagger:
		report.Tagged, err = p.Tag(ctx)
	case StagePublisher:
		report.Published, err = p.Publish(ctx)
	case StagePipeline:
		report = p.Run(ctx)
	default:
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}

	return report, err
}

func (p *Pipeline) Collect(ctx context.Context) (fetcher.Result, error) {
	var res fetcher.Result
	_, err := p.guard(ctx, StageCollector, func(ctx context.Context) (int, error) {
		var err error
		res, err = p.collector.Run(ctx)
		return res.Inserted, err
	})
	if err != nil {
		return fetcher.Result{}, err
	}

	return res, nil
}

func (p *Pipeline) Summarize(ctx context.Context) (int, error) {
	return p.guard(ctx, StageSummarizer, p.summarizer.Run)
}

func (p *Pipeline) Tag(ctx context.Context) (int, error) {
	return p.guard(ctx, StageTagger, p.tagger.Run)
}

func (p *Pipeline) Publish(ctx context.Context) (int, error) {
	return p.guard(ctx, StagePublisher, p.publisher.Run)
}

func (p *Pipeline) guard(ctx context.Context, stage string, run func(context.Context) (int, error)) (int, error) {
	release, err := p.locker.Acquire(ctx, stage)
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			slog.Info("stage already running elsewhere, skipping", "stage", stage)
		} else {
			slog.Error("failed to acquire stage lease", "stage", stage, "err", err)
		}
		return 0, err
	}
	defer release()

	started := time.Now()
	n, err := run(ctx)
	metrics.RecordStage(stage, n, started, err)

	if err != nil {
		slog.Error("stage failed", "stage", stage, "err", err)
		if p.notifier != nil {
			p.notifier.StageFailed(stage, err)
		}
		return 0, err
	}

	return n, nil
}
