package org

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestRoleInputValidate(t *testing.T) {
	assert.NoError(t, (&RoleInput{Name: "compliance-lead"}).Validate())
	assert.Error(t, (&RoleInput{Name: ""}).Validate())
	assert.Error(t, (&RoleInput{Name: "   "}).Validate())
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "roles_organization_id_name_key"}
	assert.True(t, isUniqueViolation(dup))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert role: %w", dup)))

	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
}
