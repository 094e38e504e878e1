package testutil

import (
	"net/http"
	"time"

	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

// WithRequestID stamps a request id on the request context, simulating the
// request-id middleware.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithActor stamps an authenticated admin subject on the request context,
// simulating the admin token middleware.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithTime pins the request-scoped clock so date boundary checks are
// deterministic.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
