package validate

import (
	"context"
	"os"
	"sort"

	"github.com/rs/zerolog"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"gitlab.com/tozd/go/errors"
)

var languages = map[string]func() *sitter.Language{
	"python":     python.GetLanguage,
	"go":         golang.GetLanguage,
	"javascript": javascript.GetLanguage,
	"typescript": typescript.GetLanguage,
	"bash":       bash.GetLanguage,
}

// Languages lists the languages TreeSitter can check
func Languages() []string {
	out := make([]string, 0, len(languages))
	for name := range languages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

const (
	maxProblems = 50
	maxDepth    = 1000
)

// 🌳 TreeSitter parses a file and rejects it when the tree holds ERROR or
// MISSING nodes. A fresh parser is created per call.
type TreeSitter struct {
	language string
	grammar  *sitter.Language
}

var _ Validator = (*TreeSitter)(nil)

// 🏭 NewTreeSitter creates a syntax validator for language
func NewTreeSitter(language string) (*TreeSitter, error) {
	get, ok := languages[language]
	if !ok {
		return nil, errors.Errorf("unsupported language %q", language)
	}
	return &TreeSitter{language: language, grammar: get()}, nil
}

// Language returns the checked language
func (t *TreeSitter) Language() string {
	return t.language
}

// Validate implements Validator
func (t *TreeSitter) Validate(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Errorf("reading %s: %w", path, err)
	}

	problems, err := t.Check(ctx, content)
	if err != nil {
		return errors.Errorf("parsing %s: %w", path, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Str("language", t.language).
		Int("problems", len(problems)).
		Msg("syntax check")

	if len(problems) > 0 {
		return &SyntaxError{Path: path, Language: t.language, Problems: problems}
	}
	return nil
}

// Check parses content and returns its syntax problems
func (t *TreeSitter) Check(ctx context.Context, content []byte) ([]Problem, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(t.grammar)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, errors.Errorf("tree-sitter: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}

	problems := make([]Problem, 0)
	collect(root, content, &problems, 0)
	if len(problems) == 0 {
		// HasError without a reachable ERROR/MISSING node
		problems = append(problems, Problem{Line: 1, Message: "syntax error"})
	}
	return problems, nil
}

func collect(node *sitter.Node, content []byte, problems *[]Problem, depth int) {
	if depth > maxDepth || len(*problems) >= maxProblems {
		return
	}

	if node.IsMissing() || node.IsError() {
		start := node.StartPoint()
		msg := "unexpected input"
		if node.IsMissing() {
			msg = "missing " + node.Type()
		} else if snippet := excerpt(node, content); snippet != "" {
			msg = "unexpected " + snippet
		}
		*problems = append(*problems, Problem{
			Line:    int(start.Row) + 1,
			Column:  int(start.Column),
			Message: msg,
		})
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collect(node.Child(i), content, problems, depth+1)
	}
}

func excerpt(node *sitter.Node, content []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if end > uint32(len(content)) {
		end = uint32(len(content))
	}
	if end <= start {
		return ""
	}
	s := string(content[start:end])
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return "\"" + s + "\""
}
