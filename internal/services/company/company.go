// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package company manages the company a user administers.
package company

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"codeberg.org/oliverandrich/ticketing/internal/models"
	"codeberg.org/oliverandrich/ticketing/internal/repository"
	"codeberg.org/oliverandrich/ticketing/internal/storage"
	"codeberg.org/oliverandrich/ticketing/internal/validation"
)

// ErrNotFound is returned when the user administers no company.
var ErrNotFound = errors.New("no company found for this user")

// LogoDir is the media subdirectory logos are stored in.
const LogoDir = "company_logos"

const maxNameLength = 255

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name      *string
	Logo      io.Reader // new logo upload
	ClearLogo bool
}

type Service struct {
	repo    *repository.Repository
	storage *storage.Storage
}

func NewService(repo *repository.Repository, store *storage.Storage) *Service {
	return &Service{repo: repo, storage: store}
}

// MyCompany returns the company administered by user.
func (s *Service) MyCompany(ctx context.Context, user *models.User) (*models.Company, error) {
	company, err := s.repo.GetCompanyByAdmin(ctx, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}

// UpdateMyCompany applies patch to the company administered by user. Field
// problems are returned as validation.Errors.
func (s *Service) UpdateMyCompany(ctx context.Context, user *models.User, patch Patch) (*models.Company, error) {
	company, err := s.MyCompany(ctx, user)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if errs := validateName(*patch.Name); errs != nil {
			return nil, errs
		}
		company.Name = *patch.Name
	}

	oldLogo := company.Logo
	var newLogo string

	switch {
	case patch.Logo != nil:
		newLogo, err = s.storage.SaveImage(LogoDir, patch.Logo)
		if err != nil {
			return nil, err
		}
		company.Logo = &newLogo
	case patch.ClearLogo:
		company.Logo = nil
	}

	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		if newLogo != "" {
			s.deleteLogo(newLogo)
		}
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	if oldLogo != nil && (company.Logo == nil || *company.Logo != *oldLogo) {
		s.deleteLogo(*oldLogo)
	}

	slog.Info("company_updated", "company_id", company.ID, "user_id", user.ID)
	return company, nil
}

func (s *Service) deleteLogo(name string) {
	if err := s.storage.Delete(name); err != nil {
		slog.Warn("logo_delete_failed", "name", name, "error", err)
	}
}

// Members lists the members of the company administered by user.
func (s *Service) Members(ctx context.Context, user *models.User) ([]models.User, error) {
	company, err := s.MyCompany(ctx, user)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListCompanyMembers(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func validateName(name string) validation.Errors {
	if strings.TrimSpace(name) == "" {
		return validation.Field("name", "This field may not be blank.")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return validation.Field("name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLength))
	}
	return nil
}
