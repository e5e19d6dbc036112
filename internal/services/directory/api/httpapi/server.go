// Package httpapi exposes the directory service over HTTP/JSON.
//
// Authenticated routes validate the bearer token against the session store,
// then resolve and establish the tenant context before the handler runs.
// Handlers therefore always operate on a context the storage layer accepts;
// a request that fails resolution never reaches tenant data.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	apperrors "github.com/absentiahq/absentia/internal/platform/errors"
	"github.com/absentiahq/absentia/internal/services/directory"
	"github.com/absentiahq/absentia/internal/tenantctx"
)

// Server hosts the directory HTTP endpoints.
type Server struct {
	service    *directory.Service
	propagator *tenantctx.Propagator
	logger     *log.Logger
}

// NewServer builds a server bound to the directory service and propagator.
func NewServer(service *directory.Service, propagator *tenantctx.Propagator, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{service: service, propagator: propagator, logger: logger}
}

// RegisterRoutes registers the directory endpoints on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/v1/auth/signin", s.handleSignIn)
	mux.HandleFunc("/v1/auth/signup", s.handleSignUp)
	mux.HandleFunc("/v1/auth/signout", s.handleSignOut)
	mux.HandleFunc("/v1/auth/session", s.handleSession)
	mux.HandleFunc("/v1/employees", s.withTenant(s.handleEmployees))
	mux.HandleFunc("/v1/absences", s.withTenant(s.handleAbsences))
	mux.HandleFunc("/v1/summaries/employees", s.withTenant(s.handleEmployeeSummaries))
	mux.HandleFunc("/v1/summaries/company", s.withTenant(s.handleCompanyStats))
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	message := err.Error()
	if code == apperrors.CodeUnknown {
		s.logger.Printf("internal error: %v", err)
		message = "internal error"
	}
	s.writeJSON(w, code.HTTPStatus(), errorResponse{Error: string(code), Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func decodeJSON(r *http.Request, into any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(into)
}

// bearerToken extracts the access token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// withTenant authenticates the bearer token and establishes the tenant
// context before calling next.
func (s *Server) withTenant(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken := bearerToken(r)
		if accessToken == "" {
			s.writeError(w, directory.ErrSessionExpired)
			return
		}
		session, err := s.service.CurrentSession(r.Context(), accessToken)
		if err != nil {
			s.writeError(w, err)
			return
		}
		ctx, _, err := s.propagator.Bind(r.Context(), session.UserID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r.WithContext(ctx))
	}
}
