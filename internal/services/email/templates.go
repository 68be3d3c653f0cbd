// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"os"
	"path"
	texttemplate "text/template"
)

//go:embed templates
var embeddedTemplates embed.FS

// TemplateNotFoundError is returned when no source has the template file.
type TemplateNotFoundError struct {
	Path string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("email template not found: %s", e.Path)
}

// templateSet looks templates up in an optional override directory first and
// in the built-in templates second.
type templateSet struct {
	sources []fs.FS
}

func newTemplateSet(overrideDir string) *templateSet {
	builtin, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(err)
	}

	var sources []fs.FS
	if overrideDir != "" {
		sources = append(sources, os.DirFS(overrideDir))
	}
	sources = append(sources, builtin)

	return &templateSet{sources: sources}
}

func (ts *templateSet) read(name, ext string) (string, []byte, error) {
	p := path.Join("email", name+"."+ext)
	for _, src := range ts.sources {
		content, err := fs.ReadFile(src, p)
		if err == nil {
			return p, content, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return p, nil, fmt.Errorf("reading %s: %w", p, err)
		}
	}
	return p, nil, &TemplateNotFoundError{Path: p}
}

func (ts *templateSet) renderText(name string, data map[string]any) (string, error) {
	p, content, err := ts.read(name, "txt")
	if err != nil {
		return "", err
	}

	tmpl, err := texttemplate.New(p).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", p, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", p, err)
	}
	return buf.String(), nil
}

func (ts *templateSet) renderHTML(name string, data map[string]any) (string, error) {
	p, content, err := ts.read(name, "html")
	if err != nil {
		return "", err
	}

	tmpl, err := htmltemplate.New(p).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", p, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", p, err)
	}
	return buf.String(), nil
}
