// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package storage keeps uploaded files below the media directory.
package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // register decoder
)

// ErrInvalidImage is returned for uploads that are not a supported image.
var ErrInvalidImage = errors.New("not a valid image")

// ErrInvalidName is returned for names that point outside the media root.
var ErrInvalidName = errors.New("invalid file name")

// imageTypes maps sniffed content types to file extensions.
var imageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Storage stores files in a directory on the local filesystem. Names are
// slash-separated paths relative to that directory.
type Storage struct {
	root string
}

// New creates a storage rooted at dir.
func New(dir string) *Storage {
	return &Storage{root: dir}
}

// Root returns the media directory.
func (s *Storage) Root() string {
	return s.root
}

// SaveImage checks that r holds a PNG, JPEG, GIF or WebP image and writes
// it to <dir>/<uuid>.<ext>. It returns the stored name.
func (s *Storage) SaveImage(dir string, r io.Reader) (string, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(head) == 0 {
		return "", ErrInvalidImage
	}

	ext, ok := imageTypes[http.DetectContentType(head)]
	if !ok {
		return "", ErrInvalidImage
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", ErrInvalidImage
	}

	name := path.Join(dir, uuid.NewString()+"."+ext)
	if err := s.write(name, data); err != nil {
		return "", err
	}

	slog.Debug("file_stored", "name", name, "bytes", len(data))
	return name, nil
}

func (s *Storage) write(name string, data []byte) error {
	full, err := s.Path(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o640); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *Storage) Delete(name string) error {
	full, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether a stored file exists.
func (s *Storage) Exists(name string) bool {
	full, err := s.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// Path returns the filesystem path of a stored name.
func (s *Storage) Path(name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" || strings.Contains(name, "..") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
