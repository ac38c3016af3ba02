package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/patchrc/pkg/backup"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/validate"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

func writeTarget(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	return path
}

func readTarget(t *testing.T, path string) string {
	t.Helper()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(got)
}

func backupsOf(t *testing.T, path string) []*backup.Handle {
	t.Helper()
	handles, err := backup.List(context.Background(), path)
	require.NoError(t, err)
	return handles
}

func importDescriptor() patch.Descriptor {
	return patch.Descriptor{
		ID:       "import-c",
		Markers:  []string{"import c"},
		Strategy: patch.StrategyAfterLastImport,
		Payload:  "import c",
	}
}

func markupDescriptor(s patch.Strategy) patch.Descriptor {
	return patch.Descriptor{
		ID:       "banner",
		Markers:  []string{"<!-- banner -->"},
		Strategy: s,
		Payload:  "<!-- banner --><script src=\"/banner.js\"></script>",
	}
}

type failingWriter struct{ err error }

func (w failingWriter) WriteFile(ctx context.Context, path string, content []byte, mode fs.FileMode) error {
	return w.err
}

type brokenRestore struct {
	*backup.Manager
}

func (b brokenRestore) Restore(ctx context.Context, h *backup.Handle) error {
	return errors.New("restore refused")
}

type brokenCreate struct{}

func (brokenCreate) Create(ctx context.Context, path string) (*backup.Handle, error) {
	return nil, errors.New("read-only directory")
}

func (brokenCreate) Restore(ctx context.Context, h *backup.Handle) error {
	return nil
}

type panickingCreate struct{ brokenCreate }

func (panickingCreate) Create(ctx context.Context, path string) (*backup.Handle, error) {
	panic("snapshot exploded")
}

func rejectAll(ctx context.Context, path string) error {
	return errors.New("rejected by test")
}

func TestApply_ImportScenario(t *testing.T) {
	ctx := testContext(t)
	original := "import a\nimport b\nprint(1)"
	path := writeTarget(t, "app.py", original)

	res := New().Apply(ctx, path, importDescriptor())

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, "after_last_import", res.Strategy())
	assert.False(t, res.Preserved())
	assert.Equal(t, "import a\nimport b\nimport c\nprint(1)", readTarget(t, path))

	require.NotEmpty(t, res.BackupPath)
	assert.Equal(t, original, readTarget(t, res.BackupPath))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o640), info.Mode().Perm(), "mode is kept")
}

func TestApply_Idempotent(t *testing.T) {
	ctx := testContext(t)
	path := writeTarget(t, "app.py", "import a\nprint(1)\n")
	e := New()

	first := e.Apply(ctx, path, importDescriptor())
	require.Equal(t, OutcomeApplied, first.Outcome, "first apply: %v", first.Err)
	patched := readTarget(t, path)

	second := e.Apply(ctx, path, importDescriptor())
	assert.Equal(t, OutcomeAlreadyPatched, second.Outcome)
	assert.Equal(t, "import c", second.Marker)
	assert.Empty(t, second.BackupPath)
	assert.True(t, second.Preserved())
	assert.Equal(t, patched, readTarget(t, path))
	assert.Len(t, backupsOf(t, path), 1, "second apply takes no backup")
}

func TestApply_AlreadyPatchedTakesNoBackup(t *testing.T) {
	ctx := testContext(t)
	original := "import c\nprint(1)\n"
	path := writeTarget(t, "app.py", original)

	res := New().Apply(ctx, path, importDescriptor())

	assert.Equal(t, OutcomeAlreadyPatched, res.Outcome)
	assert.Equal(t, original, readTarget(t, path))
	assert.Empty(t, backupsOf(t, path))
}

func TestApply_ValidationFailureRestores(t *testing.T) {
	ctx := testContext(t)
	original := "import a\nprint(1)\n"
	path := writeTarget(t, "app.py", original)

	res := New(WithValidator(validate.Func(rejectAll))).Apply(ctx, path, importDescriptor())

	assert.Equal(t, OutcomeValidationFailed, res.Outcome)
	assert.Equal(t, StateAborted, res.State)
	assert.True(t, errors.Is(res.Err, patch.ErrValidationFailed))
	assert.True(t, res.Restored)
	assert.True(t, res.Preserved())
	assert.Equal(t, original, readTarget(t, path))
	assert.NotEmpty(t, res.BackupPath, "backup is kept after rollback")
	assert.Equal(t, original, readTarget(t, res.BackupPath))
}

func TestApply_SyntaxErrorFromRegistry(t *testing.T) {
	ctx := testContext(t)
	original := "import os\n\nprint(os.getcwd())\n"
	path := writeTarget(t, "tool.py", original)

	d := importDescriptor()
	d.Payload = "def broken(:  # import c"

	res := New().Apply(ctx, path, d)

	require.Equal(t, OutcomeValidationFailed, res.Outcome, "err: %v", res.Err)
	var syntaxErr *validate.SyntaxError
	assert.True(t, errors.As(res.Err, &syntaxErr))
	assert.Equal(t, original, readTarget(t, path))
}

func TestApply_ValidatorPanicRestores(t *testing.T) {
	ctx := testContext(t)
	original := "import a\n"
	path := writeTarget(t, "app.py", original)

	panicky := validate.Func(func(ctx context.Context, path string) error {
		panic("validator exploded")
	})
	res := New(WithValidator(panicky)).Apply(ctx, path, importDescriptor())

	assert.Equal(t, OutcomeValidationFailed, res.Outcome)
	assert.Contains(t, res.Err.Error(), "validator exploded")
	assert.Equal(t, original, readTarget(t, path))
}

func TestApply_NoInsertionPointRestores(t *testing.T) {
	ctx := testContext(t)
	original := "def other():\n    pass\n"
	path := writeTarget(t, "mod.py", original)

	d := patch.Descriptor{
		ID:       "check",
		Markers:  []string{"# patched: check"},
		Strategy: patch.StrategyRegexReplace,
		Regex: []patch.RegexRule{
			{Pattern: `def check\(self\):\n`, Template: "def check(self):\n    return True  # patched: check\n"},
			{Pattern: `def check\(\):\n`, Template: "def check():\n    return True  # patched: check\n"},
		},
	}
	res := New().Apply(ctx, path, d)

	assert.Equal(t, OutcomeNoInsertionPoint, res.Outcome)
	assert.True(t, errors.Is(res.Err, patch.ErrNoInsertionPoint))
	assert.Contains(t, res.Err.Error(), "regex_replace[fallback 1]")
	assert.True(t, res.Restored)
	assert.Equal(t, original, readTarget(t, path))
}

func TestApply_RegexFallback(t *testing.T) {
	ctx := testContext(t)
	path := writeTarget(t, "mod.py", "def check():\n    return False\n")

	d := patch.Descriptor{
		ID:       "check",
		Markers:  []string{"# patched: check"},
		Strategy: patch.StrategyRegexReplace,
		Regex: []patch.RegexRule{
			{Pattern: `def check\(self\):\n`, Template: "def check(self):\n    return True  # patched: check\n"},
			{Pattern: `(def check\(\):\n)`, Template: "${1}    return True  # patched: check\n"},
		},
	}
	res := New().Apply(ctx, path, d)

	require.Equal(t, OutcomeApplied, res.Outcome, "err: %v", res.Err)
	assert.Equal(t, "regex_replace[fallback 1]", res.Strategy())
	assert.Equal(t, "def check():\n    return True  # patched: check\n    return False\n", readTarget(t, path))
}

func TestApply_MarkupFallbacks(t *testing.T) {
	payload := markupDescriptor(patch.StrategyMarkupBeforeTag).Payload

	tests := []struct {
		name         string
		strategy     patch.Strategy
		content      string
		want         string
		wantStrategy string
	}{
		{
			name:         "before_close_tag",
			strategy:     patch.StrategyMarkupBeforeTag,
			content:      "<html><head><title>x</title></head><body></body></html>",
			want:         "<html><head><title>x</title>" + payload + "\n</head><body></body></html>",
			wantStrategy: "markup_before_tag",
		},
		{
			name:         "after_open_tag_when_no_close_tag",
			strategy:     patch.StrategyMarkupBeforeTag,
			content:      "<html><head><title>x</title><body></body></html>",
			want:         "<html><head>\n" + payload + "<title>x</title><body></body></html>",
			wantStrategy: "markup_after_tag",
		},
		{
			name:         "prepend_when_no_tags",
			strategy:     patch.StrategyMarkupBeforeTag,
			content:      "<div>fragment</div>",
			want:         payload + "\n<div>fragment</div>",
			wantStrategy: "markup_prepend",
		},
		{
			name:         "prepend_strategy",
			strategy:     patch.StrategyMarkupPrepend,
			content:      "<html><head></head></html>",
			want:         payload + "\n<html><head></head></html>",
			wantStrategy: "markup_prepend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			path := writeTarget(t, "index.html", tt.content)

			res := New().Apply(ctx, path, markupDescriptor(tt.strategy))

			require.Equal(t, OutcomeApplied, res.Outcome, "err: %v", res.Err)
			assert.Equal(t, tt.wantStrategy, res.Strategy())
			assert.Equal(t, tt.want, readTarget(t, path))
		})
	}
}

func TestApply_WriteFailure(t *testing.T) {
	ctx := testContext(t)
	original := "import a\n"
	path := writeTarget(t, "app.py", original)

	res := New(WithWriter(failingWriter{err: errors.New("disk full")})).Apply(ctx, path, importDescriptor())

	assert.Equal(t, OutcomeWriteFailed, res.Outcome)
	assert.True(t, errors.Is(res.Err, patch.ErrWriteFailed))
	assert.Contains(t, res.Err.Error(), "disk full")
	assert.True(t, res.Restored)
	assert.Equal(t, original, readTarget(t, path))
}

func TestApply_WriteFailureWithFullDiskStillPreserves(t *testing.T) {
	ctx := testContext(t)
	original := "import a\n"
	path := writeTarget(t, "app.py", original)
	full := failingWriter{err: errors.New("no space left on device")}

	e := New(
		WithWriter(full),
		WithBackupManager(backup.New(backup.WithWriter(full))),
	)
	res := e.Apply(ctx, path, importDescriptor())

	assert.Equal(t, OutcomeWriteFailed, res.Outcome)
	assert.True(t, res.Restored)
	assert.True(t, res.Preserved())
	assert.Equal(t, original, readTarget(t, path))
}

func TestApply_RollbackFailure(t *testing.T) {
	ctx := testContext(t)
	path := writeTarget(t, "app.py", "import a\n")

	e := New(
		WithBackupManager(brokenRestore{Manager: backup.New()}),
		WithValidator(validate.Func(rejectAll)),
	)
	res := e.Apply(ctx, path, importDescriptor())

	assert.Equal(t, OutcomeRollbackFailed, res.Outcome)
	assert.False(t, res.Preserved())
	assert.False(t, res.Restored)
	assert.True(t, errors.Is(res.Err, patch.ErrRollbackFailed))
	assert.True(t, errors.Is(res.Err, patch.ErrValidationFailed), "cause is kept")

	var rb *patch.RollbackError
	require.True(t, errors.As(res.Err, &rb))
	assert.Equal(t, res.BackupPath, rb.BackupPath)
	assert.Contains(t, rb.Restore.Error(), "restore refused")
}

func TestApply_BackupFailureDoesNotWrite(t *testing.T) {
	ctx := testContext(t)
	original := "import a\n"
	path := writeTarget(t, "app.py", original)

	res := New(WithBackupManager(brokenCreate{})).Apply(ctx, path, importDescriptor())

	assert.Equal(t, OutcomeBackupFailed, res.Outcome)
	assert.True(t, errors.Is(res.Err, patch.ErrBackupFailed))
	assert.False(t, res.Restored)
	assert.Equal(t, original, readTarget(t, path))
}

func TestApply_BackupPanicIsRecovered(t *testing.T) {
	ctx := testContext(t)
	original := "import a\n"
	path := writeTarget(t, "app.py", original)

	var res *Result
	require.NotPanics(t, func() {
		res = New(WithBackupManager(panickingCreate{})).Apply(ctx, path, importDescriptor())
	})

	assert.Equal(t, OutcomeBackupFailed, res.Outcome)
	assert.True(t, errors.Is(res.Err, patch.ErrBackupFailed))
	assert.Contains(t, res.Err.Error(), "snapshot exploded")
	assert.Equal(t, original, readTarget(t, path))
}

func TestApply_PatchWithoutMarkerIsRejected(t *testing.T) {
	tests := []struct {
		name        string
		original    string
		d           patch.Descriptor
		errContains string
	}{
		{
			name:        "after_last_import",
			errContains: "payload contains none of the markers",
			original:    "import a\nprint(1)",
			d: patch.Descriptor{
				ID:       "unmarked-import",
				Markers:  []string{"# patched-x"},
				Strategy: patch.StrategyAfterLastImport,
				Payload:  "import c",
			},
		},
		{
			name:        "regex_replace",
			errContains: "leaves none of the markers",
			original:    "def f():\n    return 1\n",
			d: patch.Descriptor{
				ID:       "unmarked-regex",
				Markers:  []string{"# patched-x"},
				Strategy: patch.StrategyRegexReplace,
				Regex:    []patch.RegexRule{{Pattern: `return (1)`, Template: "return ${1}0"}},
			},
		},
		{
			name:        "markup_prepend",
			errContains: "payload contains none of the markers",
			original:    "<p>hi</p>",
			d: patch.Descriptor{
				ID:       "unmarked-markup",
				Markers:  []string{"<!-- x -->"},
				Strategy: patch.StrategyMarkupPrepend,
				Payload:  "<script></script>",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			path := writeTarget(t, "target.txt", tt.original)
			e := New(WithValidatorRegistry(nil))

			for run := 0; run < 2; run++ {
				res := e.Apply(ctx, path, tt.d)
				assert.Equal(t, OutcomeInvalidDescriptor, res.Outcome, "run %d", run)
				assert.True(t, errors.Is(res.Err, patch.ErrInvalidDescriptor))
				assert.Contains(t, res.Err.Error(), tt.errContains)
				assert.True(t, res.Preserved())
				assert.Equal(t, tt.original, readTarget(t, path), "run %d", run)
			}

			dry := New(WithDryRun(true), WithValidatorRegistry(nil)).Apply(ctx, path, tt.d)
			assert.Equal(t, OutcomeInvalidDescriptor, dry.Outcome)
			assert.Nil(t, dry.Plan)
		})
	}
}

func TestApply_UnmarkedRegexMatchRestoresSnapshot(t *testing.T) {
	ctx := testContext(t)
	original := "def f():\n    return 1\n"
	path := writeTarget(t, "f.py", original)

	d := patch.Descriptor{
		ID:       "unmarked-regex",
		Markers:  []string{"# patched-x"},
		Strategy: patch.StrategyRegexReplace,
		Regex:    []patch.RegexRule{{Pattern: `return (1)`, Template: "return ${1}0"}},
	}
	res := New().Apply(ctx, path, d)

	assert.Equal(t, OutcomeInvalidDescriptor, res.Outcome)
	assert.Equal(t, StateAborted, res.State)
	assert.True(t, res.Restored)
	assert.NotEmpty(t, res.BackupPath)
	assert.Equal(t, original, readTarget(t, path))
}

func TestApply_FileNotFound(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "missing.py")

	res := New().Apply(ctx, path, importDescriptor())

	assert.Equal(t, OutcomeFileNotFound, res.Outcome)
	assert.True(t, errors.Is(res.Err, patch.ErrFileNotFound))
	assert.Empty(t, res.BackupPath)
	assert.Empty(t, backupsOf(t, path))
}

func TestApply_InvalidDescriptor(t *testing.T) {
	ctx := testContext(t)
	original := "import a\n"
	path := writeTarget(t, "app.py", original)

	d := importDescriptor()
	d.Markers = nil
	res := New().Apply(ctx, path, d)

	assert.Equal(t, OutcomeInvalidDescriptor, res.Outcome)
	assert.True(t, errors.Is(res.Err, patch.ErrInvalidDescriptor))
	assert.Equal(t, original, readTarget(t, path))
	assert.Empty(t, backupsOf(t, path))
}

func TestApply_UnknownValidatorName(t *testing.T) {
	ctx := testContext(t)
	path := writeTarget(t, "app.py", "import a\n")

	d := importDescriptor()
	d.Validator = "cobol"
	res := New().Apply(ctx, path, d)

	assert.Equal(t, OutcomeInvalidDescriptor, res.Outcome)
	assert.Contains(t, res.Err.Error(), "unknown validator")
}

func TestApply_DryRun(t *testing.T) {
	ctx := testContext(t)
	original := "import a\nprint(1)\n"
	path := writeTarget(t, "app.py", original)

	res := New(WithDryRun(true)).Apply(ctx, path, importDescriptor())

	require.Equal(t, OutcomePlanned, res.Outcome, "err: %v", res.Err)
	require.NotNil(t, res.Plan)
	assert.Equal(t, "import a\nimport c\nprint(1)\n", res.Plan.Content)
	assert.Equal(t, "import c", res.Plan.Region())
	assert.Equal(t, original, string(res.Original))
	assert.Equal(t, original, readTarget(t, path))
	assert.Empty(t, backupsOf(t, path))
}

func TestApply_BackupRoundTrip(t *testing.T) {
	ctx := testContext(t)
	original := "import a\nprint(1)\n"
	path := writeTarget(t, "app.py", original)

	res := New().Apply(ctx, path, importDescriptor())
	require.Equal(t, OutcomeApplied, res.Outcome)

	h, err := backup.Open(res.BackupPath, path)
	require.NoError(t, err)
	require.NoError(t, backup.New().Restore(ctx, h))
	assert.Equal(t, original, readTarget(t, path))
}

func TestApply_SameSecondBackups(t *testing.T) {
	ctx := testContext(t)
	path := writeTarget(t, "index.html", "<head></head>")
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	e := New(WithBackupManager(backup.New(backup.WithClock(func() time.Time { return at }))))

	first := e.Apply(ctx, path, markupDescriptor(patch.StrategyMarkupBeforeTag))
	require.Equal(t, OutcomeApplied, first.Outcome)

	d := markupDescriptor(patch.StrategyMarkupAfterTag)
	d.ID = "second"
	d.Markers = []string{"<!-- second -->"}
	d.Payload = "<!-- second -->"
	second := e.Apply(ctx, path, d)
	require.Equal(t, OutcomeApplied, second.Outcome)

	assert.NotEqual(t, first.BackupPath, second.BackupPath)
	assert.Equal(t, first.BackupPath+"_1", second.BackupPath)
}

func TestApply_ObserverOrder(t *testing.T) {
	ctx := testContext(t)
	path := writeTarget(t, "app.py", "import a\n")

	var seen []string
	obs := func(ctx context.Context, ev Event) {
		seen = append(seen, string(ev.Stage)+":"+ev.Status.String())
	}
	res := New(WithObserver(obs), WithValidator(validate.Func(rejectAll))).Apply(ctx, path, importDescriptor())
	require.Equal(t, OutcomeValidationFailed, res.Outcome)

	assert.Equal(t, []string{
		"read:running", "read:ok",
		"guard:ok",
		"backup:running", "backup:ok",
		"resolve:running", "resolve:ok",
		"write:running", "write:ok",
		"validate:running", "validate:failed",
		"rollback:running", "rollback:ok",
	}, seen)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "already_patched", OutcomeAlreadyPatched.String())
	assert.Equal(t, "outcome(99)", Outcome(99).String())
	assert.True(t, OutcomePlanned.OK())
	assert.False(t, OutcomeRollbackFailed.OK())
}
