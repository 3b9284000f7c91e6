package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/academy-portal/apiclient"
	"github.com/jrsteele09/academy-portal/auth"
	"github.com/jrsteele09/academy-portal/credentials"
	"github.com/jrsteele09/academy-portal/internal/config"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	backend   credentials.Backend
	validator *auth.Validator
	api       *apiclient.Client
}

type Option func(*Server)

// WithValidator replaces the default wall-clock validator.
func WithValidator(v *auth.Validator) Option {
	return func(s *Server) {
		s.validator = v
	}
}

// WithAPIClient replaces the client built from the configured API base URL.
func WithAPIClient(c *apiclient.Client) Option {
	return func(s *Server) {
		s.api = c
	}
}

func New(cfg config.Config, backend credentials.Backend, opts ...Option) (*Server, error) {
	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		backend: backend,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.validator == nil {
		s.validator = auth.NewValidator()
	}
	if s.api == nil {
		api, err := apiclient.New(cfg.GetAPIBaseURL())
		if err != nil {
			return nil, fmt.Errorf("[Server New] failed to create API client: %w", err)
		}
		s.api = api
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// portal builds the per-role gateways for one device scope.
func (s *Server) portal(scope string) *auth.Portal {
	return auth.NewPortal(credentials.NewStore(s.backend, scope), s.validator)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "ANY", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("Route registered")
	}
}
