package mail

import (
	"context"
	"log/slog"
	"time"

	"github.com/dom/account-auth/internal/repository"
)

const (
	DefaultMaxAttempts   = 5
	DefaultRetryInterval = 30 * time.Second
	defaultBatchSize     = 50
)

// Dispatcher periodically retries activation mails waiting in the outbox.
type Dispatcher struct {
	outbox      repository.MailOutboxRepository
	mailer      Mailer
	interval    time.Duration
	maxAttempts int
	batchSize   int
	logger      *slog.Logger
}

// NewDispatcher uses DefaultRetryInterval when interval is not positive.
func NewDispatcher(outbox repository.MailOutboxRepository, mailer Mailer, interval time.Duration, logger *slog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	return &Dispatcher{
		outbox:      outbox,
		mailer:      mailer,
		interval:    interval,
		maxAttempts: DefaultMaxAttempts,
		batchSize:   defaultBatchSize,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("mail dispatcher started", slog.Duration("interval", d.interval))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("mail dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.Flush(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error("mail dispatch failed", slog.Any("error", err))
			}
		}
	}
}

// Flush makes one delivery attempt for every pending mail in the current batch.
func (d *Dispatcher) Flush(ctx context.Context) error {
	pending, err := d.outbox.ListPending(ctx, d.batchSize)
	if err != nil {
		return err
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg := p.Message.Data()
		log := d.logger.With(slog.String("mail_id", p.ID.String()), slog.Int("attempts", p.Attempts))

		if p.Attempts >= d.maxAttempts {
			log.Warn("dropping activation mail after max attempts", slog.String("last_error", p.LastError))
			if err := d.outbox.Delete(ctx, p.ID); err != nil {
				return err
			}
			continue
		}

		if sendErr := d.mailer.SendActivationMail(ctx, msg.To, msg.ActivationLink); sendErr != nil {
			log.Warn("activation mail retry failed", slog.Any("error", sendErr))
			if err := d.outbox.MarkFailed(ctx, p.ID, sendErr.Error()); err != nil {
				return err
			}
			continue
		}

		if err := d.outbox.Delete(ctx, p.ID); err != nil {
			return err
		}
		log.Info("activation mail delivered from outbox")
	}

	return nil
}
