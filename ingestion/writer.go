package ingestion

import (
	"context"
	"log/slog"
)

// insertOutcome counts the records persisted by insertWithFallback.
type insertOutcome struct {
	inserted int
	failed   int
}

// insertWithFallback inserts records as one atomic batch under the pipeline's
// retry policy. When every attempt fails it inserts them one at a time,
// counting each failure. Only context cancellation is returned.
func insertWithFallback[T any](
	ctx context.Context,
	p *Pipeline,
	records []T,
	insert func(ctx context.Context, records ...T) error,
	describe func(T) []any,
) (insertOutcome, error) {
	var outcome insertOutcome
	if len(records) == 0 {
		return outcome, nil
	}

	attempt := 0
	degraded, err := p.policy.DoOrDegrade(ctx,
		func(ctx context.Context) error {
			attempt++
			if err := insert(ctx, records...); err != nil {
				p.logger.Warn("batch insert failed", "attempt", attempt, "maxAttempts", p.policy.MaxAttempts, "records", len(records), "err", err)
				return err
			}
			return nil
		},
		func(ctx context.Context, cause error) error {
			p.logger.Error("batch insert exhausted retries, inserting individually", "records", len(records), "err", cause)
			for _, record := range records {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := insert(ctx, record); err != nil {
					p.logger.Error("failed to insert record", append(describe(record), slog.Any("err", err))...)
					outcome.failed++
					continue
				}
				outcome.inserted++
			}
			p.logger.Info("individual inserts finished", "inserted", outcome.inserted, "records", len(records))
			return nil
		},
	)
	if err != nil {
		return outcome, err
	}
	if !degraded {
		outcome.inserted = len(records)
	}
	return outcome, nil
}
