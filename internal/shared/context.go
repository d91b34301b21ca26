package shared

import (
	"context"

	"github.com/google/uuid"
)

type orgContextKey struct{}

// ContextWithOrg stores the tenant organization id in context.
func ContextWithOrg(ctx context.Context, orgID uuid.UUID) context.Context {
	return context.WithValue(ctx, orgContextKey{}, orgID)
}

// OrgFromContext extracts the tenant organization id from context.
func OrgFromContext(ctx context.Context) (uuid.UUID, bool) {
	orgID, ok := ctx.Value(orgContextKey{}).(uuid.UUID)
	return orgID, ok
}
