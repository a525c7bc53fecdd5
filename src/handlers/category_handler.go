package handlers

import (
	"encoding/json"
	"net/http"

	"famledger-server/src/importer"
	"famledger-server/src/models"
)

func GetAllCategories(store importer.CategoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		cats, err := store.ListCategories(r.Context(), id.FamilyID)
		if err != nil {
			writeStoreError(w, r, err, "categories")
			return
		}
		if cats == nil {
			cats = []models.Category{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cats)
	}
}
