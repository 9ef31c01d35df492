package services

import (
	"context"
	"fmt"
	"time"

	"passagens/internal/utils"

	"github.com/robfig/cron/v3"
)

const reconcileTimeout = time.Minute

// Reconciler periodically refreshes payments still pending at the gateway,
// covering notifications that never arrived.
type Reconciler struct {
	cron     *cron.Cron
	payments PaymentService
}

// NewReconciler schedules PaymentService.Reconcile. schedule uses the cron
// package syntax, e.g. "@every 2m".
func NewReconciler(schedule string, payments PaymentService) (*Reconciler, error) {
	r := &Reconciler{cron: cron.New(), payments: payments}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("agenda de conciliação inválida %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins running in the background.
func (r *Reconciler) Start() {
	r.cron.Start()
}

// Stop prevents new runs and waits for a running one, or until ctx ends.
func (r *Reconciler) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (r *Reconciler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	svc := r.payments
	svc.RequestID = "cron-reconcile"
	changed, err := svc.Reconcile(ctx)
	if err != nil {
		utils.LogError(svc.RequestID, "payment", "reconcile", err)
		return
	}
	if changed > 0 {
		utils.LogEvent(svc.RequestID, "payment", "reconcile", fmt.Sprintf("%d pagamentos atualizados", changed))
	}
}
