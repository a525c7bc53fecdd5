package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"famledger-server/src/middleware"
	"famledger-server/src/models"
)

// identity returns the authenticated caller, answering 401 when there is none.
func identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
