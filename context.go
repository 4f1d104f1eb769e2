package opspod

import (
	"context"
)

// Define a custom type for context keys
type ContextKey string

const (
	contextKeySessionID  ContextKey = "sessionID"
	contextKeyCustomerID ContextKey = "customerID"
	contextKeyExtra      ContextKey = "extra"
)

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKeySessionID, sessionID)
}

func WithCustomerID(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, contextKeyCustomerID, customerID)
}

func WithExtra(ctx context.Context, extra map[string]string) context.Context {
	return context.WithValue(ctx, contextKeyExtra, extra)
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(contextKeySessionID).(string)
	return sessionID, ok && sessionID != ""
}

// RequestIdentifiers collects the identifiers stored on the context that
// providers may attach to outgoing requests so that calls can be traced back
// to a session on the proxy side.
func RequestIdentifiers(ctx context.Context) map[string]string {
	ids := map[string]string{}
	if sessionID, ok := ctx.Value(contextKeySessionID).(string); ok && sessionID != "" {
		ids["custom_identifier"] = sessionID
	}
	if customerID, ok := ctx.Value(contextKeyCustomerID).(string); ok && customerID != "" {
		ids["customer_identifier"] = customerID
	}
	if extraMeta, ok := ctx.Value(contextKeyExtra).(map[string]string); ok {
		for key, value := range extraMeta {
			ids[key] = value
		}
	}
	return ids
}

type statusKey struct{}

// WithStatusReporter attaches a callback receiving the status messages of the
// tools run by an agent under ctx.
func WithStatusReporter(ctx context.Context, report func(status string)) context.Context {
	return context.WithValue(ctx, statusKey{}, report)
}

func reportStatus(ctx context.Context, status string) {
	if report, ok := ctx.Value(statusKey{}).(func(string)); ok && report != nil {
		report(status)
	}
}
