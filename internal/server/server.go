package server

import (
	"net/http"

	"github.com/seedkeeper/seedkeeper/internal/utils"
	"github.com/seedkeeper/seedkeeper/pkg/populate"
	"github.com/seedkeeper/seedkeeper/pkg/schema"
	"github.com/seedkeeper/seedkeeper/pkg/storage"
)

type Server struct {
	DB       *storage.DB
	Registry *schema.Registry
	Sessions *populate.Sessions
	Username string
	Password string
}

func New(db *storage.DB, reg *schema.Registry, sessions *populate.Sessions, user, pass string) *Server {
	if reg == nil {
		reg = schema.Default()
	}
	return &Server{
		DB:       db,
		Registry: reg,
		Sessions: sessions,
		Username: user,
		Password: pass,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/fields", s.basicAuth(s.handleFields))
	mux.HandleFunc("GET /api/seeds", s.basicAuth(s.handleListSeeds))
	mux.HandleFunc("POST /api/seeds", s.basicAuth(s.handleCreateSeed))
	mux.HandleFunc("GET /api/seeds/{uid}", s.basicAuth(s.handleGetSeed))
	mux.HandleFunc("PUT /api/seeds/{uid}", s.basicAuth(s.handleUpdateSeed))
	mux.HandleFunc("DELETE /api/seeds/{uid}", s.basicAuth(s.handleDeleteSeed))
	mux.HandleFunc("POST /api/populate", s.basicAuth(s.handlePopulate))
	mux.HandleFunc("POST /api/populate/abandon", s.basicAuth(s.handleAbandon))
	mux.HandleFunc("GET /api/changes", s.basicAuth(s.handleChanges))
	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))
	mux.HandleFunc("GET /api/export.csv", s.basicAuth(s.handleExport))

	return mux
}

func (s *Server) Start(addr string) error {
	utils.Log.Infof("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
