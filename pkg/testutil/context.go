package testutil

import (
	"net/http"
	"strconv"

	id "tavola/pkg/domain"
	"tavola/pkg/requestcontext"
)

// BusinessHeader carries the tenant every order route is scoped to.
const BusinessHeader = "X-Business-ID"

// WithBusiness scopes the request to businessID.
func WithBusiness(req *http.Request, businessID id.BusinessID) *http.Request {
	req.Header.Set(BusinessHeader, strconv.FormatInt(int64(businessID), 10))
	return req
}

// WithClient attaches client metadata the way the request middleware would,
// so handlers record it on appended events.
func WithClient(req *http.Request, clientIP, userAgent string) *http.Request {
	req.Header.Set("User-Agent", userAgent)
	ctx := requestcontext.WithClient(req.Context(), clientIP, userAgent)
	return req.WithContext(ctx)
}

// WithRequestID sets the request id normally assigned by middleware.RequestID.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
