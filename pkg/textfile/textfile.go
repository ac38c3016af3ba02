// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package textfile holds the single-file primitives patchrc builds on:
// reading a target with its mode, replacing it atomically, and copying
// bytes into a file that must not exist yet.
package textfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📄 File is a target read once at the start of a transaction
type File struct {
	Path    string      // path as given by the caller
	Real    string      // path with symlinks resolved, the one that gets written
	Content []byte      // bytes at read time
	Mode    fs.FileMode // permission bits at read time
}

// Checksum returns the hex SHA-256 of the content
func (f *File) Checksum() string {
	return Checksum(f.Content)
}

// 🔍 Checksum generates a SHA-256 hash of the content
func Checksum(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// 📥 Read loads a regular file
func Read(ctx context.Context, path string) (*File, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, errors.Errorf("resolving %s: %w", path, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, errors.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.Errorf("%s is not a regular file", path)
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, errors.Errorf("reading file: %w", err)
	}

	zerolog.Ctx(ctx).Trace().Str("path", path).Int("bytes", len(content)).Msg("read file")

	return &File{
		Path:    path,
		Real:    resolved,
		Content: content,
		Mode:    info.Mode().Perm(),
	}, nil
}

// 💾 Writer replaces the content of an existing file
type Writer interface {
	WriteFile(ctx context.Context, path string, content []byte, mode fs.FileMode) error
}

// AtomicWriter writes to a sibling temp file and renames it over the target,
// so readers see either the old bytes or the new bytes.
type AtomicWriter struct{}

var _ Writer = AtomicWriter{}

// WriteFile implements Writer
func (AtomicWriter) WriteFile(ctx context.Context, path string, content []byte, mode fs.FileMode) error {
	return WriteAtomic(ctx, path, content, mode)
}

// ✍️ WriteAtomic writes content to path through a temp file in the same directory
func WriteAtomic(ctx context.Context, path string, content []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".patchrc-*")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(content); err != nil {
		cleanup()
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		cleanup()
		return errors.Errorf("setting mode on temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("renaming temp file: %w", err)
	}

	zerolog.Ctx(ctx).Trace().Str("path", path).Int("bytes", len(content)).Msg("wrote file")

	return nil
}

// 📋 CreateExclusive writes content to a new file, failing with fs.ErrExist
// when the destination is already present.
func CreateExclusive(path string, content []byte, mode fs.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return errors.Errorf("creating %s: %w", path, err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return errors.Errorf("writing %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return errors.Errorf("syncing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return errors.Errorf("closing %s: %w", path, err)
	}

	return nil
}
