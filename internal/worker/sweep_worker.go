package worker

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-platform/internal/config"
	"github.com/spec-kit/incident-platform/internal/domain"
	"github.com/spec-kit/incident-platform/internal/repository"
	"github.com/spec-kit/incident-platform/internal/service"
	apperrors "github.com/spec-kit/incident-platform/pkg/util/errorutil"
)

// SweepWorker periodically evaluates the SLA state of every unresolved
// ticket. Evaluation across tickets is fully parallel; the notified-threshold
// store keeps repeated sweeps idempotent.
type SweepWorker struct {
	tickets    repository.TicketRepository
	escalation *service.EscalationService
	logger     *zap.Logger
	cfg        config.SLAConfig
	cron       *cron.Cron
}

// NewSweepWorker constructs the worker.
func NewSweepWorker(tickets repository.TicketRepository, escalation *service.EscalationService, logger *zap.Logger, cfg config.SLAConfig) *SweepWorker {
	return &SweepWorker{
		tickets:    tickets,
		escalation: escalation,
		logger:     logger,
		cfg:        cfg,
	}
}

// Start schedules the sweep according to the configured cron spec.
func (w *SweepWorker) Start() error {
	w.cron = cron.New()
	_, err := w.cron.AddFunc(w.cfg.SweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		w.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("sla sweep scheduled", zap.String("spec", w.cfg.SweepSpec))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (w *SweepWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
}

// RunOnce sweeps all unresolved tickets with a bounded worker group.
func (w *SweepWorker) RunOnce(ctx context.Context) {
	tickets, err := w.tickets.ListUnresolved(ctx)
	if err != nil {
		w.logger.Error("sla sweep listing failed", zap.Error(err))
		return
	}
	if len(tickets) == 0 {
		return
	}

	workers := w.cfg.SweepWorkers
	if workers <= 0 {
		workers = 1
	}

	queue := make(chan domain.Ticket)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticket := range queue {
				w.evaluate(ctx, &ticket)
			}
		}()
	}

	for _, ticket := range tickets {
		select {
		case queue <- ticket:
		case <-ctx.Done():
			close(queue)
			wg.Wait()
			return
		}
	}
	close(queue)
	wg.Wait()

	w.logger.Debug("sla sweep completed", zap.Int("tickets", len(tickets)))
}

// evaluate runs one ticket through the engine. Transient store failures get
// a single immediate retry; the next sweep covers anything still failing.
func (w *SweepWorker) evaluate(ctx context.Context, ticket *domain.Ticket) {
	_, err := w.escalation.Evaluate(ctx, ticket)
	if err != nil && apperrors.IsRetryable(err) {
		_, err = w.escalation.Evaluate(ctx, ticket)
	}
	if err != nil {
		w.logger.Warn("sla evaluation failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}
