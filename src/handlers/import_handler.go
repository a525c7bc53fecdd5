package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"famledger-server/src/importer"
	"famledger-server/src/logger"
	"famledger-server/src/models"
)

const uploadField = "csv_file"

type uploadResponse struct {
	*models.ImportPage
	Warnings []models.FileWarning `json:"warnings,omitempty"`
}

type confirmRequest struct {
	ImportID     string           `json:"import_id"`
	Transactions []models.RowEdit `json:"transactions"`
}

// UploadTransactions parses the uploaded CSV files and opens an import session.
func UploadTransactions(svc *importer.Service, maxUploadMB int64) http.HandlerFunc {
	limit := maxUploadMB << 20
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		id, ok := identity(w, r)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, limit)
		if err := r.ParseMultipartForm(limit); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
				return
			}
			log.Error().Err(err).Int64("user_id", id.UserID).Msg("Failed to parse upload")
			http.Error(w, "invalid upload", http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		// a missing or malformed id is reported as an invalid account
		accountID, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue("account_id")), 10, 64)

		headers := r.MultipartForm.File[uploadField]
		if len(headers) == 0 {
			http.Error(w, "no files uploaded", http.StatusBadRequest)
			return
		}

		files := make([]importer.Upload, 0, len(headers))
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				log.Error().Err(err).Str("file", fh.Filename).Msg("Failed to open uploaded file")
				http.Error(w, "invalid upload", http.StatusBadRequest)
				return
			}
			defer func(f multipart.File) { _ = f.Close() }(f)
			files = append(files, importer.Upload{Name: fh.Filename, Body: f})
		}

		page, warnings, err := svc.Upload(r.Context(), id, accountID, files)
		if errors.Is(err, importer.ErrNoValidRows) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{"error": err.Error(), "warnings": warnings})
			return
		}
		if err != nil {
			writeImportError(w, r, err)
			return
		}
		log.Info().
			Int64("user_id", id.UserID).
			Str("import_id", page.ImportID).
			Int("files", len(files)).
			Int("transactions", page.TotalTransactions).
			Msg("Upload parsed")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(uploadResponse{ImportPage: page, Warnings: warnings})
	}
}

func GetImportPage(svc *importer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		page, err := svc.Preview(r.Context(), id)
		if err != nil {
			writeImportError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(page)
	}
}

// ConfirmImportPage commits the visible page and answers with the next page, or with
// the summary once the import is done.
func ConfirmImportPage(svc *importer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		req, ok := decodeConfirm(w, r)
		if !ok {
			return
		}
		res, err := svc.Confirm(r.Context(), id, req.ImportID, req.Transactions)
		if err != nil {
			writeImportError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	}
}

func ImportAllTransactions(svc *importer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		req, ok := decodeConfirm(w, r)
		if !ok {
			return
		}
		summary, err := svc.ImportAll(r.Context(), id, req.ImportID, req.Transactions)
		if err != nil {
			writeImportError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summary)
	}
}

func CancelImport(svc *importer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		if err := svc.Abort(r.Context(), id); err != nil {
			writeImportError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "import cancelled"})
	}
}

func decodeConfirm(w http.ResponseWriter, r *http.Request) (confirmRequest, bool) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("Failed to decode import confirmation body")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// writeImportError maps pipeline errors onto HTTP statuses. Anything unexpected is a
// persistence failure and is reported without detail.
func writeImportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, importer.ErrInvalidAccount), errors.Is(err, importer.ErrInvalidEdits):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, importer.ErrNoValidRows):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, importer.ErrNoSession):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, importer.ErrStaleImport):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		logger.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Import request failed")
		http.Error(w, "failed to import transactions", http.StatusInternalServerError)
	}
}
