package gateway

import (
	"context"
	"net/http"
)

type headersKey struct{}

// ContextWithHeaders attaches extra request headers to ctx. The proxy uses
// it to forward client headers upstream.
func ContextWithHeaders(ctx context.Context, h http.Header) context.Context {
	if len(h) == 0 {
		return ctx
	}
	return context.WithValue(ctx, headersKey{}, h.Clone())
}

func headersFrom(ctx context.Context) http.Header {
	h, _ := ctx.Value(headersKey{}).(http.Header)
	return h
}
