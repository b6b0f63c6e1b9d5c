package server

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth())

	r.Route("/api", func(api chi.Router) {
		if s.cfg.RateLimit > 0 {
			api.Use(newIPRateLimiter(s.cfg.RateLimit, s.cfg.Burst).Middleware)
		}

		api.Route("/connection", func(c chi.Router) {
			c.Post("/test", s.handleTestConnection())
			c.Post("/", s.handleConnect())
			c.Delete("/", s.handleDisconnect())
			c.Get("/", s.handleStatus())
		})

		api.Get("/schemas", s.handleSchemas())
		api.Get("/schemas/context", s.handleSchemaContext())
		api.Get("/schemas/{schema}/foreign-keys", s.handleForeignKeys())

		api.Route("/tables/{schema}/{table}", func(t chi.Router) {
			t.Get("/", s.handleTableDetail())
			t.Get("/count", s.handleCount())
			t.Get("/rows", s.handlePage())
			t.Post("/rows", s.handleInsert())
			t.Patch("/rows", s.handleUpdate())
			t.Delete("/rows", s.handleDelete())
			t.Post("/export", s.handleExport())
		})

		api.Get("/exports", s.handleListExports())
		api.Get("/exports/{name}", s.handleDownloadExport())
		api.Post("/query", s.handleQuery())
		api.Get("/history", s.handleHistory())
		api.Put("/history", s.handleSaveHistory())
	})

	s.router = r
}
