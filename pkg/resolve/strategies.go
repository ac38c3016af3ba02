package resolve

import (
	"fmt"
	"regexp"
	"strings"
)

// 📥 AfterLastImport inserts the payload as a new line after the last line
// matching Pattern. Without any import line the payload is prepended.
type AfterLastImport struct {
	Payload string
	Pattern *regexp.Regexp
}

func (a *AfterLastImport) Name() string { return "after_last_import" }

func (a *AfterLastImport) Attempt(content string) (*Plan, bool) {
	lines := strings.Split(content, "\n")

	last := -1
	for i, line := range lines {
		if a.Pattern.MatchString(line) {
			last = i
		}
	}

	if last < 0 {
		inserted := a.Payload + "\n"
		return &Plan{
			Strategy:    a.Name(),
			Description: "at file start (no import lines)",
			Content:     inserted + content,
			Offset:      0,
			Length:      len(inserted),
		}, true
	}

	offset := 0
	for _, line := range lines[:last+1] {
		offset += len(line) + 1
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:last+1]...)
	out = append(out, a.Payload)
	out = append(out, lines[last+1:]...)

	return &Plan{
		Strategy:    a.Name(),
		Description: fmt.Sprintf("after line %d", last+1),
		Content:     strings.Join(out, "\n"),
		Offset:      offset,
		Length:      len(a.Payload),
	}, true
}

// 🔄 RegexReplace substitutes the first match of Pattern using Template.
// A match whose expansion leaves the content unchanged does not count.
type RegexReplace struct {
	Index    int
	Pattern  *regexp.Regexp
	Template string
}

func (r *RegexReplace) Name() string {
	if r.Index == 0 {
		return "regex_replace"
	}
	return fmt.Sprintf("regex_replace[fallback %d]", r.Index)
}

func (r *RegexReplace) Attempt(content string) (*Plan, bool) {
	loc := r.Pattern.FindStringSubmatchIndex(content)
	if loc == nil {
		return nil, false
	}

	replacement := string(r.Pattern.ExpandString(nil, r.Template, content, loc))
	patched := content[:loc[0]] + replacement + content[loc[1]:]
	if patched == content {
		return nil, false
	}

	return &Plan{
		Strategy:    r.Name(),
		Description: fmt.Sprintf("replaced match at line %d", strings.Count(content[:loc[0]], "\n")+1),
		Content:     patched,
		Offset:      loc[0],
		Length:      len(replacement),
	}, true
}

// 🏷️ InsertBeforeTag puts the payload on its own line in front of the
// first occurrence of Tag.
type InsertBeforeTag struct {
	Tag     string
	Payload string
}

func (i *InsertBeforeTag) Name() string { return "markup_before_tag" }

func (i *InsertBeforeTag) Attempt(content string) (*Plan, bool) {
	if i.Tag == "" {
		return nil, false
	}
	at := strings.Index(content, i.Tag)
	if at < 0 {
		return nil, false
	}

	inserted := i.Payload + "\n"
	return &Plan{
		Strategy:    i.Name(),
		Description: "before " + i.Tag,
		Content:     content[:at] + inserted + content[at:],
		Offset:      at,
		Length:      len(inserted),
	}, true
}

// 🏷️ InsertAfterTag puts the payload on a new line right after the first
// occurrence of Tag.
type InsertAfterTag struct {
	Tag     string
	Payload string
}

func (i *InsertAfterTag) Name() string { return "markup_after_tag" }

func (i *InsertAfterTag) Attempt(content string) (*Plan, bool) {
	if i.Tag == "" {
		return nil, false
	}
	at := strings.Index(content, i.Tag)
	if at < 0 {
		return nil, false
	}
	end := at + len(i.Tag)

	inserted := "\n" + i.Payload
	return &Plan{
		Strategy:    i.Name(),
		Description: "after " + i.Tag,
		Content:     content[:end] + inserted + content[end:],
		Offset:      end,
		Length:      len(inserted),
	}, true
}

// ⏫ Prepend puts the payload on its own line at the start of the file.
// It always matches.
type Prepend struct {
	Payload string
}

func (p *Prepend) Name() string { return "markup_prepend" }

func (p *Prepend) Attempt(content string) (*Plan, bool) {
	inserted := p.Payload + "\n"
	return &Plan{
		Strategy:    p.Name(),
		Description: "at file start",
		Content:     inserted + content,
		Offset:      0,
		Length:      len(inserted),
	}, true
}
