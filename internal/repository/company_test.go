// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/ticketing/internal/models"
	"codeberg.org/oliverandrich/ticketing/internal/repository"
	"codeberg.org/oliverandrich/ticketing/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCompany(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	admin := testutil.NewTestUser(t, repo, "admin@example.com")
	company := &models.Company{Name: "Acme", AdminID: admin.ID}

	err := repo.CreateCompany(ctx, company)

	require.NoError(t, err)
	assert.NotZero(t, company.ID)
	assert.NotZero(t, company.CreatedAt)
}

func TestCreateCompany_OnePerAdmin(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	admin := testutil.NewTestUser(t, repo, "admin@example.com")
	testutil.NewTestCompany(t, repo, admin, "First")

	err := repo.CreateCompany(ctx, &models.Company{Name: "Second", AdminID: admin.ID})

	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestCreateCompany_UnknownAdmin(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.CreateCompany(context.Background(), &models.Company{Name: "Ghost", AdminID: 999})

	assert.Error(t, err)
}

func TestGetCompanyByAdmin(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	admin := testutil.NewTestUser(t, repo, "admin@example.com")
	created := testutil.NewTestCompany(t, repo, admin, "Acme")

	company, err := repo.GetCompanyByAdmin(ctx, admin.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, company.ID)
	assert.Equal(t, "Acme", company.Name)
	assert.Nil(t, company.Logo)
}

func TestGetCompanyByAdmin_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	user := testutil.NewTestUser(t, repo, "user@example.com")

	_, err := repo.GetCompanyByAdmin(context.Background(), user.ID)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetCompanyByID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	admin := testutil.NewTestUser(t, repo, "admin@example.com")
	created := testutil.NewTestCompany(t, repo, admin, "Acme")

	company, err := repo.GetCompanyByID(context.Background(), created.ID)

	require.NoError(t, err)
	assert.Equal(t, admin.ID, company.AdminID)
}

func TestUpdateCompany(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	admin := testutil.NewTestUser(t, repo, "admin@example.com")
	company := testutil.NewTestCompany(t, repo, admin, "Acme")
	logo := "company_logos/logo.png"
	company.Name = "Acme Inc."
	company.Logo = &logo

	require.NoError(t, repo.UpdateCompany(ctx, company))

	retrieved, err := repo.GetCompanyByID(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc.", retrieved.Name)
	require.NotNil(t, retrieved.Logo)
	assert.Equal(t, logo, *retrieved.Logo)
}

func TestUpdateCompany_ClearLogo(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	admin := testutil.NewTestUser(t, repo, "admin@example.com")
	company := testutil.NewTestCompany(t, repo, admin, "Acme")
	logo := "company_logos/logo.png"
	company.Logo = &logo
	require.NoError(t, repo.UpdateCompany(ctx, company))

	company.Logo = nil
	require.NoError(t, repo.UpdateCompany(ctx, company))

	retrieved, err := repo.GetCompanyByID(ctx, company.ID)
	require.NoError(t, err)
	assert.Nil(t, retrieved.Logo)
}

func TestAddCompanyMember_Idempotent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	admin := testutil.NewTestUser(t, repo, "admin@example.com")
	company := testutil.NewTestCompany(t, repo, admin, "Acme")

	require.NoError(t, repo.AddCompanyMember(ctx, company.ID, admin.ID))

	members, err := repo.ListCompanyMembers(ctx, company.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestListCompanyMembers(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	admin := testutil.NewTestUser(t, repo, "admin@example.com")
	member := testutil.NewTestUser(t, repo, "member@example.com")
	testutil.NewTestUser(t, repo, "outsider@example.com")
	company := testutil.NewTestCompany(t, repo, admin, "Acme")
	require.NoError(t, repo.AddCompanyMember(ctx, company.ID, member.ID))

	members, err := repo.ListCompanyMembers(ctx, company.ID)

	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "admin@example.com", members[0].Email)
	assert.Equal(t, "member@example.com", members[1].Email)
}

func TestListCompanyMembers_Empty(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	members, err := repo.ListCompanyMembers(context.Background(), 999)

	require.NoError(t, err)
	assert.NotNil(t, members)
	assert.Empty(t, members)
}
