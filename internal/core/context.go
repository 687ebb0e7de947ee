package core

import "context"

type contextKey string

const (
	ctxKeyTrigger   contextKey = "refresh_trigger"
	ctxKeyIPAddress contextKey = "refresh_ip"
)

// Refresh triggers recorded in logs and metrics.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerAPI      = "api"
)

// ContextWithTrigger records what started a refresh.
func ContextWithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, ctxKeyTrigger, trigger)
}

// ContextWithIPAddress records the client address that requested a refresh.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// TriggerFromContext returns the refresh trigger, or "unknown".
func TriggerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTrigger).(string); ok {
		return v
	}
	return "unknown"
}

// IPAddressFromContext extracts the client address.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
