// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// GraduateService sits in the middle. It knows the rules (every field is
// required, names are unique, a listing fails as a whole if one graduate's
// GitHub URL is unusable) but nothing about HTTP status codes or SQL.
//
// DEPENDENCY INJECTION:
// GraduateService takes a repository.GraduateRepository and a ProfileFetcher,
// both interfaces. Production wires SQLite/Postgres and the GitHub client;
// tests wire in-memory fakes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/graduate-showcase/internal/apperror"
	"github.com/sakif/graduate-showcase/internal/github"
	"github.com/sakif/graduate-showcase/internal/model"
	"github.com/sakif/graduate-showcase/internal/repository"
)

// ProfileFetcher looks up one GitHub profile. *github.Client implements it.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, login string) (*model.GitHubUser, error)
}

// CreateGraduateInput carries the fields of a new graduate, as submitted.
type CreateGraduateInput struct {
	Name      string
	GitHubURL string
	Role      string
	CVLink    string
}

// GraduateService handles business logic for graduates.
type GraduateService struct {
	repo     repository.GraduateRepository
	profiles ProfileFetcher
	logger   *slog.Logger
}

// NewGraduateService creates a new GraduateService.
func NewGraduateService(repo repository.GraduateRepository, profiles ProfileFetcher, logger *slog.Logger) *GraduateService {
	return &GraduateService{
		repo:     repo,
		profiles: profiles,
		logger:   logger,
	}
}

// Create validates and stores a new graduate.
//
// VALIDATION ORDER:
//  1. Every field must be non-empty once surrounding whitespace is trimmed.
//     The first missing field (in name, github_url, role, cv_link order) is reported.
//  2. The name must not be taken. The repository checks this inside the same
//     transaction as the INSERT and the table's UNIQUE constraint backs it up,
//     so two concurrent requests cannot both succeed.
//
// The returned graduate carries the id the store generated.
func (s *GraduateService) Create(ctx context.Context, in CreateGraduateInput) (*model.Graduate, error) {
	g := &model.Graduate{
		Name:      strings.TrimSpace(in.Name),
		GitHubURL: strings.TrimSpace(in.GitHubURL),
		Role:      strings.TrimSpace(in.Role),
		CVLink:    strings.TrimSpace(in.CVLink),
	}

	required := []struct {
		field string
		value string
	}{
		{"name", g.Name},
		{"github_url", g.GitHubURL},
		{"role", g.Role},
		{"cv_link", g.CVLink},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, apperror.ValidationFailed(r.field,
				fmt.Sprintf("Please fill in all required fields: %s is missing", r.field))
		}
	}

	if err := s.repo.Insert(ctx, g); err != nil {
		s.logger.Warn("failed to create graduate",
			slog.String("name", g.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating graduate: %w", err)
	}

	s.logger.Info("graduate created",
		slog.Int64("id", g.ID),
		slog.String("name", g.Name),
	)

	return g, nil
}

// ListProfiles returns every stored graduate paired with their GitHub profile.
//
// FAIL-FAST:
// Graduates are processed one at a time, in id order. The first graduate whose
// URL is empty or not a GitHub profile URL aborts the whole listing with a
// validation error naming that graduate, and no further GitHub calls are made.
// A failed GitHub call aborts the listing the same way. There are no partial results.
//
// An empty store is a validation error too ("No graduates available"), and in
// that case GitHub is never contacted.
func (s *GraduateService) ListProfiles(ctx context.Context) ([]model.GraduateProfile, error) {
	graduates, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list graduates", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing graduates: %w", err)
	}

	if len(graduates) == 0 {
		return nil, apperror.ValidationFailed("graduates", "No graduates available")
	}

	profiles := make([]model.GraduateProfile, 0, len(graduates))
	for _, g := range graduates {
		if g.GitHubURL == "" {
			return nil, apperror.ValidationFailed("github_url",
				fmt.Sprintf("GitHub URL is missing for graduate %s", g.Name))
		}

		login, ok := github.ExtractUsername(g.GitHubURL)
		if !ok {
			return nil, apperror.ValidationFailed("github_url",
				fmt.Sprintf("Failed to extract GitHub username from: %s", g.GitHubURL))
		}

		user, err := s.profiles.FetchProfile(ctx, login)
		if err != nil {
			s.logger.Error("failed to fetch github profile",
				slog.Int64("graduate_id", g.ID),
				slog.String("login", login),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("enriching graduate %d: %w", g.ID, err)
		}

		profiles = append(profiles, model.NewGraduateProfile(g, user))
	}

	s.logger.Debug("graduates enriched", slog.Int("count", len(profiles)))

	return profiles, nil
}

// LookupID returns the id of the graduate with the given name.
// Returns apperror.ErrNotFound if there is none.
func (s *GraduateService) LookupID(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, apperror.ValidationFailed("name", "name is required")
	}

	return s.repo.IDByName(ctx, name)
}
