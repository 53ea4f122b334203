// Package context carries the metadata of the request being served.
package context

import "context"

type requestKey struct{}

// Request is what sage knows about the caller of the current operation
type Request struct {
	ID       string
	UserID   string
	Method   string
	Route    string
	RemoteIP string
}

// WithRequest returns a copy of ctx carrying r
func WithRequest(ctx context.Context, r Request) context.Context {
	return context.WithValue(ctx, requestKey{}, r)
}

// FromContext returns the request stored in ctx, or the zero Request
func FromContext(ctx context.Context) Request {
	r, _ := ctx.Value(requestKey{}).(Request)
	return r
}

func GetRequestID(ctx context.Context) string {
	return FromContext(ctx).ID
}

func GetUserID(ctx context.Context) string {
	return FromContext(ctx).UserID
}

// LogFields are the request fields attached to access and error logs.
// Empty values are left out.
func LogFields(ctx context.Context) map[string]any {
	r := FromContext(ctx)
	fields := map[string]any{}
	for key, value := range map[string]string{
		"request_id": r.ID,
		"user_id":    r.UserID,
		"method":     r.Method,
		"route":      r.Route,
		"remote_ip":  r.RemoteIP,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
