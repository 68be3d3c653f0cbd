// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"codeberg.org/oliverandrich/ticketing/internal/i18n"
	"codeberg.org/oliverandrich/ticketing/internal/models"
	"codeberg.org/oliverandrich/ticketing/internal/services/company"
	"codeberg.org/oliverandrich/ticketing/internal/storage"
	"codeberg.org/oliverandrich/ticketing/internal/validation"
	"github.com/labstack/echo/v4"
)

const (
	msgNotAFile = "The submitted data was not a file. Check the encoding type on the form."
	msgNotNull  = "This field may not be null."
	msgNotStr   = "Not a valid string."
)

// CompanyHandlers contains handlers for the requester's company.
type CompanyHandlers struct {
	companies *company.Service
	mediaURL  string
}

// NewCompany creates a new CompanyHandlers instance. mediaURL is the
// absolute URL prefix logo paths are appended to.
func NewCompany(svc *company.Service, mediaURL string) *CompanyHandlers {
	return &CompanyHandlers{companies: svc, mediaURL: mediaURL}
}

// CompanyResponse is the JSON representation of a company.
type CompanyResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Logo      *string   `json:"logo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *CompanyHandlers) response(co *models.Company) CompanyResponse {
	resp := CompanyResponse{
		ID:        co.ID,
		Name:      co.Name,
		CreatedAt: co.CreatedAt,
		UpdatedAt: co.UpdatedAt,
	}
	if co.Logo != nil && *co.Logo != "" {
		logo := h.mediaURL + *co.Logo
		resp.Logo = &logo
	}
	return resp
}

// MyCompany returns the company the user administers.
func (h *CompanyHandlers) MyCompany(c echo.Context) error {
	co, err := h.companies.MyCompany(c.Request().Context(), currentUser(c))
	if errors.Is(err, company.ErrNotFound) {
		return Detail(c, http.StatusNotFound, "company_not_found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.response(co))
}

// UpdateMyCompany partially updates the company the user administers.
// It accepts JSON as well as multipart form data carrying a logo file.
func (h *CompanyHandlers) UpdateMyCompany(c echo.Context) error {
	patch, closeFn, err := parseCompanyPatch(c)
	if err != nil {
		return renderError(c, err)
	}
	defer closeFn()

	ctx := c.Request().Context()
	co, err := h.companies.UpdateMyCompany(ctx, currentUser(c), patch)
	switch {
	case errors.Is(err, company.ErrNotFound):
		return Detail(c, http.StatusNotFound, "company_not_found")
	case errors.Is(err, storage.ErrInvalidImage):
		return FieldErrors(c, validation.Field("logo", i18n.T(ctx, "logo_invalid")))
	case err != nil:
		return renderError(c, err)
	}

	return c.JSON(http.StatusOK, h.response(co))
}

// Members lists the members of the company the user administers.
func (h *CompanyHandlers) Members(c echo.Context) error {
	members, err := h.companies.Members(c.Request().Context(), currentUser(c))
	if errors.Is(err, company.ErrNotFound) {
		return Detail(c, http.StatusNotFound, "company_not_found")
	}
	if err != nil {
		return err
	}
	if members == nil {
		members = []models.User{}
	}
	return c.JSON(http.StatusOK, members)
}

func parseCompanyPatch(c echo.Context) (company.Patch, func(), error) {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ctype, echo.MIMEMultipartForm) || strings.HasPrefix(ctype, echo.MIMEApplicationForm) {
		return parseFormPatch(c)
	}
	patch, err := parseJSONPatch(c.Request().Body)
	return patch, func() {}, err
}

func parseFormPatch(c echo.Context) (company.Patch, func(), error) {
	var patch company.Patch
	noop := func() {}

	params, err := c.FormParams()
	if err != nil {
		return patch, noop, errInvalidBody
	}

	if values, ok := params["name"]; ok && len(values) > 0 {
		name := values[0]
		patch.Name = &name
	}

	fh, err := c.FormFile("logo")
	switch {
	case err == nil:
		var f multipart.File
		f, err = fh.Open()
		if err != nil {
			return patch, noop, errInvalidBody
		}
		patch.Logo = f
		return patch, func() { _ = f.Close() }, nil
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		if values, ok := params["logo"]; ok {
			if len(values) > 0 && values[0] != "" {
				return patch, noop, validation.Field("logo", msgNotAFile)
			}
			patch.ClearLogo = true
		}
		return patch, noop, nil
	default:
		return patch, noop, errInvalidBody
	}
}

func parseJSONPatch(body io.Reader) (company.Patch, error) {
	var patch company.Patch

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return patch, nil
		}
		return patch, errInvalidBody
	}

	errs := validation.Errors{}
	if raw, ok := fields["name"]; ok {
		var name *string
		switch {
		case json.Unmarshal(raw, &name) != nil:
			errs.Add("name", msgNotStr)
		case name == nil:
			errs.Add("name", msgNotNull)
		default:
			patch.Name = name
		}
	}
	if raw, ok := fields["logo"]; ok {
		if string(raw) == "null" {
			patch.ClearLogo = true
		} else {
			errs.Add("logo", msgNotAFile)
		}
	}

	if len(errs) > 0 {
		return patch, errs
	}
	return patch, nil
}
