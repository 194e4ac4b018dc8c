package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/berkana/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events behind the same token.
// vaultRoot is used to resolve the assets directory.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler, vaultRoot string) chi.Router {
	h := NewHandler(svc)
	ah := NewAssetHandler(vaultRoot)

	r := chi.NewRouter()

	// Conversion is stateless and needs no vault access.
	r.Post("/convert", h.Convert)
	r.Post("/convert/{to}", h.ConvertRaw)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token, false))

		// Documents CRUD.
		r.Get("/documents", h.ListDocuments)
		r.Post("/documents", h.CreateDocument)
		r.Get("/documents/*", h.GetDocument)
		r.Put("/documents/*", h.UpdateDocument)
		r.Delete("/documents/*", h.DeleteDocument)
		r.Post("/move/*", h.MoveDocument)
		r.Get("/blocks/*", h.DocumentBlocks)

		// Search and stats.
		r.Get("/search", h.Search)
		r.Get("/stats", h.Stats)

		// Editing sessions.
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.OpenSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.CloseSession)
				r.Get("/content", h.GetSessionContent)
				r.Put("/content", h.ReplaceContent)
				r.Post("/type", h.Type)
				r.Post("/keys", h.Keys)
				r.Post("/select", h.Select)
				r.Post("/paste", h.Paste)
				r.Post("/toolbar", h.Toolbar)
				r.Post("/convert", h.ConvertBlock)
				r.Post("/image", h.InsertImage)
				r.Post("/task", h.ToggleTask)
				r.Post("/save", h.Save)
			})
		})

		// Image uploads for image blocks.
		r.Post("/assets", ah.Upload)

	})

	// EventSource cannot send headers, so /events also takes ?access_token=.
	if sseHandler != nil {
		r.With(AuthMiddleware(authEnabled, token, true)).Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
