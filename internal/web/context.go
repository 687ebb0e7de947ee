package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/catalog/internal/core"
)

// refreshContext tags ctx for a client-requested refresh. RemoteAddr has
// already been resolved by TrustedRealIP.
func refreshContext(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithTrigger(ctx, core.TriggerAPI)
	return core.ContextWithIPAddress(ctx, r.RemoteAddr)
}
