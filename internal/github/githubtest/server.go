// Package githubtest provides a fake GitHub GraphQL endpoint for tests.
package githubtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sakif/graduate-showcase/internal/model"
)

// Server answers the profile query from an in-memory set of users.
// Unknown logins get GitHub's NOT_FOUND shape: a null user plus an errors array.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]model.GitHubUser
	logins   []string
	authHdrs []string
	queries  []string
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// NewServer starts a fake endpoint serving the given users and closes it on cleanup.
func NewServer(t *testing.T, users map[string]model.GitHubUser) *Server {
	t.Helper()
	s := &Server{users: users}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// NewErrorServer starts an endpoint that always answers with statusCode.
func NewErrorServer(t *testing.T, statusCode int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(`{"message":"` + http.StatusText(statusCode) + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	login, _ := req.Variables["login"].(string)

	s.mu.Lock()
	s.logins = append(s.logins, login)
	s.authHdrs = append(s.authHdrs, r.Header.Get("Authorization"))
	s.queries = append(s.queries, req.Query)
	user, ok := s.users[login]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"user": nil},
			"errors": []map[string]interface{}{{
				"type":    "NOT_FOUND",
				"path":    []string{"user"},
				"message": "Could not resolve to a User with the login of '" + login + "'.",
			}},
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"data": map[string]interface{}{"user": user},
	})
}

// Logins returns the logins requested so far, in order.
func (s *Server) Logins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logins...)
}

// AuthHeaders returns the Authorization header of every request, in order.
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHdrs...)
}

// Queries returns the raw GraphQL documents received, in order.
func (s *Server) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// User builds a profile with the given avatar and an optional bio.
func User(avatarURL, bio string) model.GitHubUser {
	u := model.GitHubUser{
		AvatarURL:      avatarURL,
		SocialAccounts: model.SocialAccounts{Nodes: []model.SocialAccount{}},
	}
	if bio != "" {
		u.Bio = &bio
	}
	return u
}
