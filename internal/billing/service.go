package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalwatchdog/platform/internal/models"
)

var (
	ErrNotFound      = errors.New("billing account not found")
	ErrBadTransition = errors.New("illegal billing status transition")
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

func (s *Service) Account(ctx context.Context, orgID uuid.UUID) (*models.BillingAccount, error) {
	a := &models.BillingAccount{}
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, status, plan_name, trial_ends_at, created_at, updated_at
		 FROM billing_accounts WHERE organization_id = $1`, orgID,
	).Scan(&a.ID, &a.OrganizationID, &a.Status, &a.PlanName, &a.TrialEndsAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load billing account: %w", err)
	}
	return a, nil
}

var validTransitions = map[models.BillingStatus][]models.BillingStatus{
	models.BillingTrialing:  {models.BillingActive, models.BillingCancelled, models.BillingBlocked},
	models.BillingActive:    {models.BillingPastDue, models.BillingCancelled, models.BillingBlocked},
	models.BillingPastDue:   {models.BillingActive, models.BillingUnpaid, models.BillingBlocked},
	models.BillingUnpaid:    {models.BillingActive, models.BillingCancelled, models.BillingBlocked},
	models.BillingCancelled: {models.BillingActive},
	models.BillingBlocked:   {models.BillingActive},
}

// CanTransition reports whether the status machine permits moving from one
// status to another. A no-op transition is always permitted.
func CanTransition(from, to models.BillingStatus) bool {
	if from == to {
		return true
	}
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// SetStatus applies a state transition. Illegal jumps are rejected so a
// payment-provider callback replayed out of order cannot resurrect a
// blocked account.
func (s *Service) SetStatus(ctx context.Context, orgID uuid.UUID, next models.BillingStatus) (*models.BillingAccount, error) {
	a, err := s.Account(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if a.Status == next {
		return a, nil
	}

	if !CanTransition(a.Status, next) {
		return nil, fmt.Errorf("cannot move billing status from %s to %s: %w", a.Status, next, ErrBadTransition)
	}

	err = s.db.QueryRow(ctx,
		`UPDATE billing_accounts SET status = $1, updated_at = now()
		 WHERE organization_id = $2 RETURNING status, updated_at`,
		next, orgID,
	).Scan(&a.Status, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update billing status: %w", err)
	}

	slog.Info("billing status changed", "organization_id", orgID, "status", a.Status)
	return a, nil
}
