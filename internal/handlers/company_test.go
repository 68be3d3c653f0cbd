// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/oliverandrich/ticketing/internal/models"
	"codeberg.org/oliverandrich/ticketing/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type companyFixture struct {
	api     *testAPI
	admin   *models.User
	company *models.Company
	token   string
}

func newCompanyFixture(t *testing.T) *companyFixture {
	t.Helper()
	api := newTestAPI(t)
	admin := testutil.NewTestUser(t, api.repo, "admin@example.com")
	return &companyFixture{
		api:     api,
		admin:   admin,
		company: testutil.NewTestCompany(t, api.repo, admin, "Acme"),
		token:   testutil.NewTestToken(t, api.repo, admin),
	}
}

// uploadLogo sends a multipart PATCH. An empty filename sends logo as a
// plain form value.
func (f *companyFixture) uploadLogo(t *testing.T, fields map[string]string, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("logo", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/companies/my/", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Token "+f.token)
	rec := httptest.NewRecorder()
	f.api.e.ServeHTTP(rec, req)
	return rec
}

func (f *companyFixture) storedLogo(t *testing.T) *string {
	t.Helper()
	co, err := f.api.repo.GetCompanyByID(context.Background(), f.company.ID)
	require.NoError(t, err)
	return co.Logo
}

func TestMyCompany(t *testing.T) {
	f := newCompanyFixture(t)

	rec := f.api.do(t, http.MethodGet, "/api/companies/my/", nil, f.token)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(f.company.ID), body["id"])
	assert.Equal(t, "Acme", body["name"])
	assert.Nil(t, body["logo"])
	assert.Contains(t, body, "created_at")
	assert.Contains(t, body, "updated_at")
	assert.NotContains(t, body, "admin_id")
}

func TestMyCompany_NoCompany(t *testing.T) {
	api := newTestAPI(t)
	user := testutil.NewTestUser(t, api.repo, "member@example.com")
	token := testutil.NewTestToken(t, api.repo, user)

	rec := api.do(t, http.MethodGet, "/api/companies/my/", nil, token)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No company found for this user.", decodeBody(t, rec)["detail"])
}

func TestMyCompany_OnlyAdmin(t *testing.T) {
	f := newCompanyFixture(t)
	ctx := context.Background()
	member := testutil.NewTestUser(t, f.api.repo, "member@example.com")
	require.NoError(t, f.api.repo.AddCompanyMember(ctx, f.company.ID, member.ID))

	rec := f.api.do(t, http.MethodGet, "/api/companies/my/", nil, testutil.NewTestToken(t, f.api.repo, member))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMyCompany_Unauthenticated(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/api/companies/my/", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodPatch, "/api/companies/my/", map[string]string{"name": "x"}, "").Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/api/companies/my/members/", nil, "").Code)
}

func TestUpdateMyCompany_Name(t *testing.T) {
	f := newCompanyFixture(t)

	rec := f.api.do(t, http.MethodPatch, "/api/companies/my/", map[string]any{
		"name":       "Acme Corp",
		"id":         999,
		"created_at": "2000-01-01T00:00:00Z",
	}, f.token)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Acme Corp", body["name"])
	assert.Equal(t, float64(f.company.ID), body["id"])

	co, err := f.api.repo.GetCompanyByID(context.Background(), f.company.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", co.Name)
}

func TestUpdateMyCompany_InvalidName(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"blank", `{"name":"   "}`, "This field may not be blank."},
		{"too long", `{"name":"` + strings.Repeat("a", 256) + `"}`, "Ensure this field has no more than 255 characters."},
		{"null", `{"name":null}`, "This field may not be null."},
		{"not a string", `{"name":["a"]}`, "Not a valid string."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCompanyFixture(t)

			rec := f.api.do(t, http.MethodPatch, "/api/companies/my/", tt.body, f.token)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, []string{tt.expected}, fieldErrors(t, rec)["name"])
		})
	}
}

func TestUpdateMyCompany_MalformedJSON(t *testing.T) {
	f := newCompanyFixture(t)

	rec := f.api.do(t, http.MethodPatch, "/api/companies/my/", `{"name"`, f.token)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Malformed request.", decodeBody(t, rec)["detail"])
}

func TestUpdateMyCompany_UploadLogo(t *testing.T) {
	f := newCompanyFixture(t)

	rec := f.uploadLogo(t, map[string]string{"name": "Acme Corp"}, "logo.png", testutil.PNG(t))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Acme Corp", body["name"])
	logoURL, ok := body["logo"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(logoURL, testMediaURL+"company_logos/"), logoURL)
	assert.True(t, strings.HasSuffix(logoURL, ".png"), logoURL)

	stored := f.storedLogo(t)
	require.NotNil(t, stored)
	assert.FileExists(t, filepath.Join(f.api.mediaDir, *stored))
}

func TestUpdateMyCompany_ReplaceLogo(t *testing.T) {
	f := newCompanyFixture(t)

	require.Equal(t, http.StatusOK, f.uploadLogo(t, nil, "logo.png", testutil.PNG(t)).Code)
	first := f.storedLogo(t)
	require.NotNil(t, first)

	require.Equal(t, http.StatusOK, f.uploadLogo(t, nil, "logo.gif", testutil.GIF(t)).Code)
	second := f.storedLogo(t)
	require.NotNil(t, second)

	assert.NotEqual(t, *first, *second)
	assert.True(t, strings.HasSuffix(*second, ".gif"))
	assert.NoFileExists(t, filepath.Join(f.api.mediaDir, *first))
	assert.FileExists(t, filepath.Join(f.api.mediaDir, *second))
}

func TestUpdateMyCompany_InvalidLogo(t *testing.T) {
	f := newCompanyFixture(t)

	rec := f.uploadLogo(t, nil, "logo.png", []byte("this is not an image"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{
		"Upload a valid image. The file you uploaded was either not an image or a corrupted image.",
	}, fieldErrors(t, rec)["logo"])
	assert.Nil(t, f.storedLogo(t))

	entries, err := os.ReadDir(filepath.Join(f.api.mediaDir, "company_logos"))
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestUpdateMyCompany_ClearLogo(t *testing.T) {
	t.Run("json null", func(t *testing.T) {
		f := newCompanyFixture(t)
		require.Equal(t, http.StatusOK, f.uploadLogo(t, nil, "logo.png", testutil.PNG(t)).Code)
		old := f.storedLogo(t)
		require.NotNil(t, old)

		rec := f.api.do(t, http.MethodPatch, "/api/companies/my/", `{"logo":null}`, f.token)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Nil(t, decodeBody(t, rec)["logo"])
		assert.Nil(t, f.storedLogo(t))
		assert.NoFileExists(t, filepath.Join(f.api.mediaDir, *old))
	})

	t.Run("empty form value", func(t *testing.T) {
		f := newCompanyFixture(t)
		require.Equal(t, http.StatusOK, f.uploadLogo(t, nil, "logo.png", testutil.PNG(t)).Code)

		rec := f.uploadLogo(t, map[string]string{"logo": ""}, "", nil)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Nil(t, f.storedLogo(t))
	})
}

func TestUpdateMyCompany_LogoNotAFile(t *testing.T) {
	t.Run("json string", func(t *testing.T) {
		f := newCompanyFixture(t)

		rec := f.api.do(t, http.MethodPatch, "/api/companies/my/", `{"logo":"http://example.com/logo.png"}`, f.token)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{
			"The submitted data was not a file. Check the encoding type on the form.",
		}, fieldErrors(t, rec)["logo"])
	})

	t.Run("form value", func(t *testing.T) {
		f := newCompanyFixture(t)

		rec := f.uploadLogo(t, map[string]string{"logo": "logo.png"}, "", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotEmpty(t, fieldErrors(t, rec)["logo"])
	})
}

func TestUpdateMyCompany_NoCompany(t *testing.T) {
	api := newTestAPI(t)
	user := testutil.NewTestUser(t, api.repo, "member@example.com")
	token := testutil.NewTestToken(t, api.repo, user)

	rec := api.do(t, http.MethodPatch, "/api/companies/my/", map[string]string{"name": "Mine"}, token)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No company found for this user.", decodeBody(t, rec)["detail"])
}

func TestMembers(t *testing.T) {
	f := newCompanyFixture(t)
	member := testutil.NewTestUser(t, f.api.repo, "member@example.com")
	require.NoError(t, f.api.repo.AddCompanyMember(context.Background(), f.company.ID, member.ID))

	rec := f.api.do(t, http.MethodGet, "/api/companies/my/members/", nil, f.token)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeList(t, rec)
	require.Len(t, body, 2)

	emails := []string{body[0]["email"].(string), body[1]["email"].(string)}
	assert.ElementsMatch(t, []string{"admin@example.com", "member@example.com"}, emails)
	for _, m := range body {
		assert.Contains(t, m, "pk")
		assert.Contains(t, m, "name")
		assert.Contains(t, m, "is_onboarded")
		assert.NotContains(t, m, "password_hash")
	}
}

func TestMembers_NoCompany(t *testing.T) {
	api := newTestAPI(t)
	user := testutil.NewTestUser(t, api.repo, "member@example.com")
	token := testutil.NewTestToken(t, api.repo, user)

	rec := api.do(t, http.MethodGet, "/api/companies/my/members/", nil, token)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
