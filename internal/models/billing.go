package models

import (
	"time"

	"github.com/google/uuid"
)

type BillingStatus string

const (
	BillingTrialing  BillingStatus = "trialing"
	BillingActive    BillingStatus = "active"
	BillingPastDue   BillingStatus = "past_due"
	BillingUnpaid    BillingStatus = "unpaid"
	BillingCancelled BillingStatus = "cancelled"
	BillingBlocked   BillingStatus = "blocked"
)

type BillingAccount struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	OrganizationID uuid.UUID     `json:"organization_id" db:"organization_id"`
	Status         BillingStatus `json:"status" db:"status"`
	PlanName       string        `json:"plan_name" db:"plan_name"`
	TrialEndsAt    *time.Time    `json:"trial_ends_at,omitempty" db:"trial_ends_at"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}
