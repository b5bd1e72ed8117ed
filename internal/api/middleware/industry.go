package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const industryHeader = "X-Industry-Id"

// IndustryIDKey carries the caller's requested industry scope for the
// current request. The scope is explicit per request rather than stored
// server-side, so one request can never inherit a scope a previous,
// unrelated request selected.
const IndustryIDKey contextKey = "industry_id"

// IndustryScope parses the optional X-Industry-Id header into the request
// context. Validation against the caller's grants happens in the access
// evaluator, which has the user's permission rows at hand.
func IndustryScope() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(industryHeader)
			if raw == "" {
				raw = r.URL.Query().Get("industry_id")
			}
			if raw == "" || raw == "all" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "Invalid industry id", http.StatusBadRequest)
				return
			}

			ctx := context.WithValue(r.Context(), IndustryIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIndustryID returns the request's industry scope, or nil when the caller
// asked for their full visible set.
func GetIndustryID(ctx context.Context) *uuid.UUID {
	if id, ok := ctx.Value(IndustryIDKey).(uuid.UUID); ok {
		return &id
	}
	return nil
}
