package auth

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

type ctxKey string

const accountIDKey ctxKey = "accountID"

// WithAccountID returns ctx carrying the authenticated account id.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// AccountIDFromContext returns the id stored by WithAccountID.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}

// ParseBearer extracts the token from an "authorization: Bearer <token>"
// value. The scheme is matched case-insensitively; "" means absent.
func ParseBearer(v string) string {
	if len(v) < len(common.BearerPrefix) || !strings.EqualFold(v[:len(common.BearerPrefix)], common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(common.BearerPrefix):])
}
