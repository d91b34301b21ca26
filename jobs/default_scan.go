package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultScanner is the slice of the credit service the aging scan needs.
type DefaultScanner interface {
	DefaultOverdue(ctx context.Context, asOf time.Time, graceDays int) (int, error)
}

// CreditDefaultScanJob marks credits defaulted once their oldest unpaid
// installment ages past the grace period.
type CreditDefaultScanJob struct {
	credits   DefaultScanner
	graceDays int
	logger    *slog.Logger
}

// NewCreditDefaultScanJob constructs the job with its configured grace period.
func NewCreditDefaultScanJob(credits DefaultScanner, graceDays int, logger *slog.Logger) *CreditDefaultScanJob {
	return &CreditDefaultScanJob{credits: credits, graceDays: graceDays, logger: logger}
}

// Handle processes TaskCreditDefaultScan tasks.
func (j *CreditDefaultScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CreditDefaultScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	graceDays := payload.GraceDays
	if graceDays <= 0 {
		graceDays = j.graceDays
	}

	defaulted, err := j.credits.DefaultOverdue(ctx, asOf, graceDays)
	if err != nil {
		j.logger.Error("credit default scan", slog.Any("error", err))
		return err
	}
	j.logger.Info("credit default scan finished",
		slog.Int("defaulted", defaulted),
		slog.Int("grace_days", graceDays),
		slog.Time("as_of", asOf))
	return nil
}
