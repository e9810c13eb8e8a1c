package bfstool

import (
	"context"

	"github.com/meigma/bfstool/internal/batch"
	"github.com/meigma/bfstool/internal/filter"
)

// Extract decodes entries into files below dest.
//
// Every entry is attempted; failures are recorded in the report by entry
// index and never stop the batch. Files are written to a temporary name and
// renamed on success, so a failed entry leaves nothing behind. The returned
// error is non-nil only when dest cannot be prepared or ctx ends.
//
// By default:
//   - All entries are extracted (use ExtractWithPattern to select)
//   - Existing files are skipped (use ExtractWithOverwrite to overwrite)
func (a *Archive) Extract(ctx context.Context, dest string, opts ...ExtractOption) (*ExtractReport, error) {
	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = a.log()
	}

	items := a.selectEntries(cfg.patterns)

	sink, err := batch.NewFileSink(dest, batch.WithOverwrite(cfg.overwrite))
	if err != nil {
		return nil, err
	}
	defer sink.Close()

	proc := batch.NewProcessor(a.dec,
		batch.WithWorkers(cfg.workers),
		batch.WithCRCOfDecoded(a.codec.Traits().CRCOfDecoded),
		batch.WithProcessorLogger(logger),
		batch.WithProcessorProgress(cfg.progress),
	)
	report, err := proc.Process(ctx, items, sink)
	if report != nil {
		logger.Info("extraction finished",
			"extracted", report.Extracted, "skipped", report.Skipped, "failed", report.Failed)
	}
	return report, err
}

// selectEntries returns the entries whose names match any pattern, or all
// entries when there are no patterns.
func (a *Archive) selectEntries(patterns []string) []batch.Item {
	rules := make([]filter.Rule, len(patterns))
	for i, p := range patterns {
		rules[i] = filter.Rule{Pattern: p, Polarity: filter.Include}
	}
	items := make([]batch.Item, 0, len(a.model.Entries))
	for i := range a.model.Entries {
		e := &a.model.Entries[i]
		if len(rules) > 0 && filter.Evaluate(e.Name, rules) != filter.Include {
			continue
		}
		items = append(items, batch.Item{Index: i, Entry: e})
	}
	return items
}
