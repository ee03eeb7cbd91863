// Package net provides utilities for working with request contexts
package net

import (
	"context"
	"net"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ctxKey is an unexported key type for context values
type ctxKey string

const keyAccountID ctxKey = "account_id"

// WithRequest annotates context with the request id
func WithRequest(ctx context.Context, reqID string) context.Context {
	if reqID != "" {
		// set chi RequestID so chimw.GetReqID can retrieve it
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	return ctx
}

// WithAccount annotates context with the authenticated account id
func WithAccount(ctx context.Context, accountID string) context.Context {
	if accountID != "" {
		ctx = context.WithValue(ctx, keyAccountID, accountID)
	}
	return ctx
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	if v := chimw.GetReqID(ctx); v != "" {
		return v
	}
	return ""
}

// AccountID returns the authenticated account id on the context if present
// Empty means the request is anonymous
func AccountID(ctx context.Context) string {
	if v, ok := ctx.Value(keyAccountID).(string); ok {
		return v
	}
	return ""
}

// ClientAddr extracts the caller's network address without the port.
// RemoteAddr is already rewritten by the RealIP middleware when forwarded headers exist
func ClientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
