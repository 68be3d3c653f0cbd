// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/ticketing/internal/models"
)

const companyColumns = `id, name, logo, admin_id, created_at, updated_at`

// CreateCompany inserts a company. A second company for the same admin
// fails with ErrDuplicate.
func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now

	id, err := r.insertReturningID(ctx,
		`INSERT INTO companies (name, logo, admin_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`,
		company.Name, company.Logo, company.AdminID, company.CreatedAt, company.UpdatedAt)
	if err != nil {
		return err
	}

	company.ID = id
	return nil
}

// GetCompanyByID retrieves a company by ID.
func (r *Repository) GetCompanyByID(ctx context.Context, id int64) (*models.Company, error) {
	var company models.Company
	if err := r.get(ctx, &company, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &company, nil
}

// GetCompanyByAdmin retrieves the company administered by the given user.
func (r *Repository) GetCompanyByAdmin(ctx context.Context, adminID int64) (*models.Company, error) {
	var company models.Company
	if err := r.get(ctx, &company, `SELECT `+companyColumns+` FROM companies WHERE admin_id = ?`, adminID); err != nil {
		return nil, err
	}
	return &company, nil
}

// UpdateCompany writes name and logo back to the database.
func (r *Repository) UpdateCompany(ctx context.Context, company *models.Company) error {
	company.UpdatedAt = time.Now().UTC()

	res, err := r.exec(ctx, `UPDATE companies SET name = ?, logo = ?, updated_at = ? WHERE id = ?`,
		company.Name, company.Logo, company.UpdatedAt, company.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// AddCompanyMember adds a user to a company. Adding an existing member is a no-op.
func (r *Repository) AddCompanyMember(ctx context.Context, companyID, userID int64) error {
	_, err := r.exec(ctx,
		`INSERT INTO company_members (company_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		companyID, userID)
	return err
}

// ListCompanyMembers returns the members of a company ordered by ID.
func (r *Repository) ListCompanyMembers(ctx context.Context, companyID int64) ([]models.User, error) {
	users := []models.User{}
	err := r.selectAll(ctx, &users,
		`SELECT u.id, u.email, u.password_hash, u.name, u.is_active, u.is_staff, u.is_superuser,
			u.is_email_verified, u.email_verification_code, u.email_verification_code_created_at,
			u.is_onboarded, u.last_login, u.created_at, u.updated_at
		FROM users u
		JOIN company_members m ON m.user_id = u.id
		WHERE m.company_id = ?
		ORDER BY u.id`,
		companyID)
	if err != nil {
		return nil, err
	}
	return users, nil
}
