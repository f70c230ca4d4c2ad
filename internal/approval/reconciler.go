package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"collateral-backend/internal/queue"
	"collateral-backend/internal/shared/metrics"
	"collateral-backend/internal/shared/telemetry"
)

var ErrPropertyRequired = errors.New("property id required")

// DocumentStatuses lists the statuses of every document attached to a property.
type DocumentStatuses interface {
	StatusesByProperty(ctx context.Context, propertyID string) ([]Status, error)
}

// PropertyStatusStore reads and writes a property's derived status.
type PropertyStatusStore interface {
	GetStatus(ctx context.Context, propertyID string) (Status, error)
	UpdateStatus(ctx context.Context, propertyID string, status Status) error
}

// Reconciler recomputes property statuses from their documents.
type Reconciler struct {
	Documents  DocumentStatuses
	Properties PropertyStatusStore
	Queue      queue.Client
	Now        func() time.Time
}

// Result describes a single reconciliation pass.
type Result struct {
	Status   Status
	Previous Status
	Changed  bool
	Skipped  bool
}

// Reconcile derives the property's status and writes it. A property with no
// documents is left untouched.
func (r *Reconciler) Reconcile(ctx context.Context, propertyID string) (Result, error) {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return Result{}, ErrPropertyRequired
	}

	statuses, err := r.Documents.StatusesByProperty(ctx, propertyID)
	if err != nil {
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("list document statuses: %w", err)
	}
	next, ok := Aggregate(statuses)
	if !ok {
		metrics.Reconciliations.WithLabelValues("skipped").Inc()
		return Result{Skipped: true}, nil
	}

	previous, err := r.Properties.GetStatus(ctx, propertyID)
	if err != nil {
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("get property status: %w", err)
	}
	if err := r.Properties.UpdateStatus(ctx, propertyID, next); err != nil {
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("update property status: %w", err)
	}

	res := Result{Status: next, Previous: previous, Changed: previous != next}
	if !res.Changed {
		metrics.Reconciliations.WithLabelValues("unchanged").Inc()
		return res, nil
	}
	metrics.Reconciliations.WithLabelValues("changed").Inc()
	telemetry.Info("property.status_changed", map[string]any{
		"property_id":     propertyID,
		"status":          string(next),
		"previous_status": string(previous),
	})
	r.notify(ctx, propertyID, previous, next)
	return res, nil
}

func (r *Reconciler) notify(ctx context.Context, propertyID string, previous, next Status) {
	if r.Queue == nil {
		return
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	msg := queue.StatusChanged(propertyID, string(previous), string(next), now())
	if err := r.Queue.Send(ctx, msg); err != nil {
		telemetry.Error("property.status_notify_failed", map[string]any{
			"property_id": propertyID,
			"error":       err.Error(),
		})
	}
}
