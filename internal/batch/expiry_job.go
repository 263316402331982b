package batch

import (
	"collections-engine/internal/domain/payment"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpireStaleJob sweeps PENDING transactions that outlived the confirmation
// window and forces them to EXPIRED. Scheduled frequently; each run is cheap
// when nothing is stale.
type ExpireStaleJob struct {
	paymentService payment.PaymentService
	timeout        time.Duration
	logger         *slog.Logger
}

func NewExpireStaleJob(paymentSvc payment.PaymentService, timeout time.Duration, logger *slog.Logger) *ExpireStaleJob {
	if paymentSvc == nil || logger == nil {
		panic("ExpireStaleJob dependencies cannot be nil")
	}
	return &ExpireStaleJob{
		paymentService: paymentSvc,
		timeout:        timeout,
		logger:         logger.With("job", "ExpireStalePayments"),
	}
}

func (j *ExpireStaleJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.DebugContext(ctx, "Starting stale payment expiry sweep.")

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	expired, err := j.paymentService.ExpireStalePayments(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Stale payment expiry sweep failed.", slog.Any("error", err))
		return fmt.Errorf("cannot run expiry sweep: %w", err)
	}

	duration := time.Since(startTime)
	if expired > 0 {
		j.logger.InfoContext(ctx, "Stale payment expiry sweep finished.",
			slog.Int("expired", expired), slog.Duration("duration", duration))
	} else {
		j.logger.DebugContext(ctx, "Stale payment expiry sweep found nothing to do.",
			slog.Duration("duration", duration))
	}
	return nil
}
