// Package requestcontext carries transport metadata from middleware to the
// handlers that stamp it onto appended events. It never carries the tenant:
// business scope travels explicitly on every command and query.
package requestcontext

import "context"

// Metadata describes the request a command arrived on.
type Metadata struct {
	RequestID string
	ClientIP  string
	UserAgent string
}

type metadataKey struct{}

// From returns the metadata stored on ctx, or the zero value.
func From(ctx context.Context) Metadata {
	m, _ := ctx.Value(metadataKey{}).(Metadata)
	return m
}

// With replaces the metadata stored on ctx.
func With(ctx context.Context, m Metadata) context.Context {
	return context.WithValue(ctx, metadataKey{}, m)
}

// WithRequestID sets the request id, keeping any client fields.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	m := From(ctx)
	m.RequestID = requestID
	return With(ctx, m)
}

// WithClient sets the client address and user agent, keeping the request id.
func WithClient(ctx context.Context, clientIP, userAgent string) context.Context {
	m := From(ctx)
	m.ClientIP = clientIP
	m.UserAgent = userAgent
	return With(ctx, m)
}

func RequestID(ctx context.Context) string { return From(ctx).RequestID }

func ClientIP(ctx context.Context) string { return From(ctx).ClientIP }

func UserAgent(ctx context.Context) string { return From(ctx).UserAgent }
