// Package patch replaces the contents of one named block in a file that has
// been fenced with anchor markers.
package patch

import (
	"errors"
	"fmt"
	"strings"

	"sentinel/internal/anchor"
	"sentinel/internal/logging"
	"sentinel/internal/textfile"
)

var (
	ErrBlockNotFound  = errors.New("block not found")
	ErrAmbiguousBlock = errors.New("block markers appear more than once")
)

// Result reports what a patch did. Changed is false when the new content
// matched the existing region and nothing was written.
type Result struct {
	Changed   bool
	StartLine int // start marker line
	EndLine   int // end marker line before patching
	Encoding  textfile.Encoding
}

// Region locates block in lines and returns the 0-based indexes of its
// start and end marker lines.
func Region(lines []string, syntax anchor.Syntax, block string) (int, int, error) {
	var starts, ends []int
	for _, mk := range syntax.Scan(lines) {
		if mk.Name != block {
			continue
		}
		if mk.IsEnd {
			ends = append(ends, mk.Line-1)
		} else {
			starts = append(starts, mk.Line-1)
		}
	}

	switch {
	case len(starts) == 0 || len(ends) == 0:
		return 0, 0, fmt.Errorf("%w: %q", ErrBlockNotFound, block)
	case len(starts) > 1 || len(ends) > 1:
		return 0, 0, fmt.Errorf("%w: %q", ErrAmbiguousBlock, block)
	case ends[0] < starts[0]:
		return 0, 0, fmt.Errorf("%w: %q ends before it starts", ErrBlockNotFound, block)
	}
	return starts[0], ends[0], nil
}

// Normalize collapses every whitespace run to one space and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Apply returns text with the lines strictly between the block's markers
// replaced by newText. The second result is false when the region already
// holds newText up to whitespace.
func Apply(text, path, block, newText string) (string, bool, error) {
	syntax := anchor.SyntaxFor(path)
	lines := anchor.SplitLines(text)

	start, end, err := Region(lines, syntax, block)
	if err != nil {
		return "", false, err
	}

	current := anchor.JoinLines(lines[start+1 : end])
	if Normalize(current) == Normalize(newText) {
		return text, false, nil
	}

	body := strings.ReplaceAll(newText, "\r\n", "\n")
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	if anchor.UsesCRLF(text) {
		body = strings.ReplaceAll(body, "\n", "\r\n")
	}

	var b strings.Builder
	b.WriteString(anchor.JoinLines(lines[:start+1]))
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString(anchor.JoinLines(lines[end:]))
	return b.String(), true, nil
}

// Patch rewrites block in the file at path. The file keeps its detected
// encoding where possible.
func Patch(path, block, newText string) (Result, error) {
	doc, err := textfile.Read(path)
	if err != nil {
		return Result{}, err
	}

	lines := anchor.SplitLines(doc.Text)
	start, end, err := Region(lines, anchor.SyntaxFor(path), block)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	res := Result{StartLine: start + 1, EndLine: end + 1, Encoding: doc.Encoding}

	out, changed, err := Apply(doc.Text, path, block, newText)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	if !changed {
		logging.Patch("block %q in %s already up to date", block, path)
		return res, nil
	}

	enc, err := textfile.Write(path, out, doc.Encoding)
	if err != nil {
		return Result{}, err
	}
	res.Changed = true
	res.Encoding = enc
	logging.Patch("patched block %q in %s", block, path)
	return res, nil
}
