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

// Package backup snapshots a file before it is mutated and copies the
// snapshot back on demand. Snapshots are siblings of the target named
// <path>.backup_<YYYYMMDD_HHMMSS>, with a _<n> discriminator when two
// snapshots land in the same second. Nothing here ever deletes a snapshot.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/textfile"
	"gitlab.com/tozd/go/errors"
)

const (
	// Infix separates the target path from the timestamp
	Infix = ".backup_"
	// TimestampLayout is the second granularity timestamp used in names
	TimestampLayout = "20060102_150405"

	maxDiscriminator = 1000
)

// 🗂️ Handle references one snapshot on disk
type Handle struct {
	Path       string      // file the snapshot was taken from
	BackupPath string      // snapshot location
	CreatedAt  time.Time   // timestamp encoded in the name
	Checksum   string      // SHA-256 of the saved bytes
	Size       int64       // number of saved bytes
	Mode       fs.FileMode // permission bits of the original
}

// String returns the backup path
func (h *Handle) String() string {
	return h.BackupPath
}

// 🔧 Manager creates and restores snapshots
type Manager struct {
	now    func() time.Time
	writer textfile.Writer
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the clock used for names
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithWriter overrides how restores replace the target
func WithWriter(w textfile.Writer) Option {
	return func(m *Manager) {
		m.writer = w
	}
}

// 🏭 New creates a new backup manager
func New(opts ...Option) *Manager {
	m := &Manager{
		now:    time.Now,
		writer: textfile.AtomicWriter{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the snapshot path for path at t without a discriminator
func Name(path string, t time.Time) string {
	return path + Infix + t.Format(TimestampLayout)
}

// 📸 Create copies the current bytes of path into a new snapshot
func (m *Manager) Create(ctx context.Context, path string) (*Handle, error) {
	logger := zerolog.Ctx(ctx)

	src, err := textfile.Read(ctx, path)
	if err != nil {
		return nil, patch.Wrap(patch.ErrBackupFailed, errors.Errorf("reading source: %w", err))
	}

	created := m.now()
	base := Name(path, created)

	for n := 0; n < maxDiscriminator; n++ {
		candidate := base
		if n > 0 {
			candidate = fmt.Sprintf("%s_%d", base, n)
		}

		err := textfile.CreateExclusive(candidate, src.Content, src.Mode)
		if errors.Is(err, fs.ErrExist) {
			logger.Debug().Str("candidate", candidate).Msg("backup name taken, trying next")
			continue
		}
		if err != nil {
			return nil, patch.Wrap(patch.ErrBackupFailed, err)
		}

		if info, statErr := os.Stat(src.Real); statErr == nil {
			// keep the original mtime on the snapshot, errors here are cosmetic
			_ = os.Chtimes(candidate, info.ModTime(), info.ModTime())
		}

		h := &Handle{
			Path:       path,
			BackupPath: candidate,
			CreatedAt:  created,
			Checksum:   src.Checksum(),
			Size:       int64(len(src.Content)),
			Mode:       src.Mode,
		}

		logger.Debug().Str("path", path).Str("backup", candidate).Str("checksum", h.Checksum).Msg("backup created")
		return h, nil
	}

	return nil, errors.Errorf("%w: no free backup name after %d attempts for %s", patch.ErrBackupFailed, maxDiscriminator, base)
}

// ♻️ Restore copies the snapshot back over the original path and verifies
// the restored bytes. A target that still holds the snapshot bytes is left
// untouched.
func (m *Manager) Restore(ctx context.Context, h *Handle) error {
	if h == nil {
		return errors.Errorf("restoring: no backup handle")
	}
	logger := zerolog.Ctx(ctx)

	saved, err := os.ReadFile(h.BackupPath)
	if err != nil {
		return errors.Errorf("reading backup %s: %w", h.BackupPath, err)
	}
	if h.Checksum != "" && textfile.Checksum(saved) != h.Checksum {
		return errors.Errorf("backup %s changed since it was taken", h.BackupPath)
	}

	target, err := filepath.EvalSymlinks(h.Path)
	if err != nil {
		// the original may have been removed; restore to the given path
		target = h.Path
	}

	if current, err := os.ReadFile(target); err == nil && bytes.Equal(current, saved) {
		logger.Debug().Str("path", h.Path).Str("backup", h.BackupPath).Msg("target already matches backup")
		return nil
	}

	mode := h.Mode
	if mode == 0 {
		mode = 0o644
	}

	if err := m.writer.WriteFile(ctx, target, saved, mode); err != nil {
		return errors.Errorf("restoring %s: %w", h.Path, err)
	}

	restored, err := os.ReadFile(target)
	if err != nil {
		return errors.Errorf("re-reading restored %s: %w", h.Path, err)
	}
	if !bytes.Equal(restored, saved) {
		return errors.Errorf("restored %s does not match backup %s", h.Path, h.BackupPath)
	}

	logger.Debug().Str("path", h.Path).Str("backup", h.BackupPath).Msg("backup restored")
	return nil
}

// 📂 Open builds a handle for an existing snapshot so it can be restored
// onto target.
func Open(backupPath, target string) (*Handle, error) {
	content, err := os.ReadFile(backupPath)
	if err != nil {
		return nil, errors.Errorf("reading backup: %w", err)
	}
	info, err := os.Stat(backupPath)
	if err != nil {
		return nil, errors.Errorf("stat backup: %w", err)
	}

	h := &Handle{
		Path:       target,
		BackupPath: backupPath,
		Checksum:   textfile.Checksum(content),
		Size:       int64(len(content)),
		Mode:       info.Mode().Perm(),
	}
	if t, ok := parseSuffix(strings.TrimPrefix(filepath.Base(backupPath), filepath.Base(target)+Infix)); ok {
		h.CreatedAt = t
	}
	return h, nil
}

// 📋 List returns the snapshots of path, oldest first
func List(ctx context.Context, path string) ([]*Handle, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + Infix

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Errorf("reading directory %s: %w", dir, err)
	}

	type listed struct {
		handle *Handle
		n      int
	}

	var found []listed
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		suffix := strings.TrimPrefix(e.Name(), prefix)
		t, ok := parseSuffix(suffix)
		if !ok {
			zerolog.Ctx(ctx).Debug().Str("name", e.Name()).Msg("skipping file with backup prefix but foreign suffix")
			continue
		}

		info, err := e.Info()
		if err != nil {
			return nil, errors.Errorf("stat %s: %w", e.Name(), err)
		}

		found = append(found, listed{
			handle: &Handle{
				Path:       path,
				BackupPath: filepath.Join(dir, e.Name()),
				CreatedAt:  t,
				Size:       info.Size(),
				Mode:       info.Mode().Perm(),
			},
			n: discriminator(suffix),
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].handle.CreatedAt.Equal(found[j].handle.CreatedAt) {
			return found[i].handle.CreatedAt.Before(found[j].handle.CreatedAt)
		}
		return found[i].n < found[j].n
	})

	out := make([]*Handle, 0, len(found))
	for _, f := range found {
		out = append(out, f.handle)
	}
	return out, nil
}

// parseSuffix reads "YYYYMMDD_HHMMSS" or "YYYYMMDD_HHMMSS_<n>"
func parseSuffix(suffix string) (time.Time, bool) {
	if len(suffix) < len(TimestampLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, suffix[:len(TimestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	rest := suffix[len(TimestampLayout):]
	if rest == "" {
		return t, true
	}
	if !strings.HasPrefix(rest, "_") {
		return time.Time{}, false
	}
	if _, err := strconv.Atoi(rest[1:]); err != nil {
		return time.Time{}, false
	}
	return t, true
}

func discriminator(suffix string) int {
	rest := suffix[len(TimestampLayout):]
	if rest == "" {
		return 0
	}
	n, _ := strconv.Atoi(rest[1:])
	return n
}
