package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vani-hq/vani/internal/access"
	"github.com/vani-hq/vani/internal/api/dto"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAccessError maps evaluator errors to HTTP responses. The two denial
// variants stay distinguishable so the client can prompt an industry switch
// on the scoped one; neither message names any industry.
func writeAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, access.ErrIndustryAccessDenied):
		writeJSON(w, http.StatusForbidden, dto.Error("Industry access denied"))
	case errors.Is(err, access.ErrPermissionDenied), errors.Is(err, access.ErrUserNotFound):
		writeJSON(w, http.StatusForbidden, dto.Error("Permission denied"))
	default:
		writeJSON(w, http.StatusInternalServerError, dto.Error("Internal error"))
	}
}

func parsePagination(r *http.Request) dto.PaginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	p := dto.PaginationParams{Page: page, PerPage: perPage}
	p.Normalize()
	return p
}

func totalPages(total int64, perPage int) int {
	pages := int(total) / perPage
	if int(total)%perPage > 0 {
		pages++
	}
	return pages
}
