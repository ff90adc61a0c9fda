package tenant

import (
	"context"

	"github.com/google/uuid"

	"github.com/legalwatchdog/platform/internal/models"
)

type contextKey string

const (
	userKey   contextKey = "user"
	accessKey contextKey = "access"
	guestKey  contextKey = "guest"
)

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

func WithAccess(ctx context.Context, a *Access) context.Context {
	return context.WithValue(ctx, accessKey, a)
}

func AccessFromContext(ctx context.Context) *Access {
	a, _ := ctx.Value(accessKey).(*Access)
	return a
}

// OrgIDFromContext returns the resolved tenant boundary, or uuid.Nil when
// the request is not organization-scoped.
func OrgIDFromContext(ctx context.Context) uuid.UUID {
	if a := AccessFromContext(ctx); a != nil {
		return a.OrganizationID
	}
	return uuid.Nil
}

// Guest carries authenticated guest context: the external participant and
// the single ticket they may touch.
type Guest struct {
	Participant *models.ExternalParticipant
	Ticket      *models.Ticket
}

func WithGuest(ctx context.Context, g *Guest) context.Context {
	return context.WithValue(ctx, guestKey, g)
}

func GuestFromContext(ctx context.Context) *Guest {
	g, _ := ctx.Value(guestKey).(*Guest)
	return g
}
