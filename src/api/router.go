package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"famledger-server/src/config"
	"famledger-server/src/handlers"
	"famledger-server/src/importer"
	"famledger-server/src/middleware"
)

// Store is everything the CRUD endpoints read and write.
type Store interface {
	handlers.AccountTypeStore
	handlers.ImportRuleStore
	importer.CategoryStore
}

func NewRouter(cfg config.Config, log zerolog.Logger, store Store, svc *importer.Service) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middleware.ReadOnlyMiddleware(cfg.ReadOnly))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))

		// Import
		r.Post("/transactions/import", handlers.UploadTransactions(svc, cfg.MaxUploadMB))
		r.Get("/transactions/import", handlers.GetImportPage(svc))
		r.Delete("/transactions/import", handlers.CancelImport(svc))
		r.Post("/transactions/import/confirm", handlers.ConfirmImportPage(svc))
		r.Post("/transactions/import/all", handlers.ImportAllTransactions(svc))

		// Account types
		r.Get("/account-types", handlers.GetAllAccountTypes(store))
		r.Post("/account-types", handlers.CreateAccountType(store))
		r.Get("/account-types/presets", handlers.GetAccountTypePresets())
		r.Post("/account-types/presets/{name}", handlers.CreateAccountTypeFromPreset(store))
		r.Get("/account-types/{account_type_id}", handlers.GetAccountTypeByID(store))
		r.Put("/account-types/{account_type_id}", handlers.UpdateAccountType(store))
		r.Delete("/account-types/{account_type_id}", handlers.DeleteAccountType(store))

		// Import rules
		r.Get("/import-rules", handlers.GetAllImportRules(store))
		r.Post("/import-rules", handlers.CreateImportRule(store))
		r.Get("/import-rules/{rule_id}", handlers.GetImportRuleByID(store))
		r.Put("/import-rules/{rule_id}", handlers.UpdateImportRule(store))
		r.Delete("/import-rules/{rule_id}", handlers.DeleteImportRule(store))
		r.Post("/import-rules/{rule_id}/apply", handlers.ApplyImportRule(store))

		// Categories
		r.Get("/categories", handlers.GetAllCategories(store))
	})

	return r
}
