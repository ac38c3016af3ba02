package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnified(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		opt      Options
		want     []string
		wantOmit bool
		wantNone bool
	}{
		{
			name: "inserted_line",
			a:    "import a\nimport b\nprint(1)\n",
			b:    "import a\nimport b\nimport c\nprint(1)\n",
			want: []string{"--- a/app.py\n", "+++ b/app.py\n", " import b\n", "+import c\n", " print(1)\n"},
		},
		{
			name:     "identical",
			a:        "same\n",
			b:        "same\n",
			wantNone: true,
		},
		{
			name:     "oversize",
			a:        "0123456789",
			b:        "0123456789x",
			opt:      Options{MaxBytes: 10},
			want:     []string{"diff omitted"},
			wantOmit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, omitted := Unified("a/app.py", "b/app.py", []byte(tt.a), []byte(tt.b), tt.opt)
			assert.Equal(t, tt.wantOmit, omitted)
			if tt.wantNone {
				assert.Empty(t, got)
				return
			}
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestCompute(t *testing.T) {
	st := Compute("<head></head>", "<head><!-- x -->\n</head>")
	require.True(t, st.Changed())
	assert.Equal(t, len("<!-- x -->\n"), st.Inserted)
	assert.Equal(t, 0, st.Deleted)
	assert.Equal(t, "+11 -0", st.String())
	assert.NotEmpty(t, st.Delta)

	none := Compute("abc", "abc")
	assert.False(t, none.Changed())
}

func TestSplitLinesKeepNL(t *testing.T) {
	assert.Equal(t, []string{}, splitLinesKeepNL(""))
	assert.Equal(t, []string{"a\n", "b"}, splitLinesKeepNL("a\nb"))
	assert.Equal(t, []string{"a\n", ""}, splitLinesKeepNL("a\n"))
}
