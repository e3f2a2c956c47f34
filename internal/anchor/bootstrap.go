// Package anchor defines the named block markers that fence editable regions
// of a source file and inserts them around every top-level function.
package anchor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"sentinel/internal/locator"
	"sentinel/internal/logging"
	"sentinel/internal/textfile"
)

var (
	ErrAlreadyBootstrapped = errors.New("file already contains block markers")
	ErrUnsupportedLanguage = errors.New("no declaration locator for file type")
	ErrParse               = errors.New("failed to parse source")
	ErrNoDeclarations      = errors.New("no top-level functions found")
	ErrDuplicateBlock      = errors.New("duplicate block name")
	// ErrOverlappingDeclarations means two declarations share a line, so no
	// marker can sit between them.
	ErrOverlappingDeclarations = errors.New("declarations share a line")
)

// Result summarises a bootstrap run.
type Result struct {
	Blocks   int
	Names    []string
	Encoding textfile.Encoding
}

// Bootstrapper inserts block markers around top-level declarations.
type Bootstrapper struct {
	locators *locator.Factory
}

// NewBootstrapper creates a Bootstrapper. A nil factory means the default
// set of locators.
func NewBootstrapper(locators *locator.Factory) *Bootstrapper {
	if locators == nil {
		locators = locator.DefaultFactory()
	}
	return &Bootstrapper{locators: locators}
}

// Bootstrap wraps every top-level function of the file at path in a
// start/end marker pair named after the function. The file is left
// untouched on any error.
func (b *Bootstrapper) Bootstrap(path string) (Result, error) {
	timer := logging.StartTimer(logging.CategoryAnchor, "bootstrap "+path)
	defer timer.Stop()

	if !b.locators.Has(path) {
		return Result{}, fmt.Errorf("%w: %s (supported: %s)",
			ErrUnsupportedLanguage, path, strings.Join(b.locators.Extensions(), " "))
	}

	doc, err := textfile.Read(path)
	if err != nil {
		return Result{}, err
	}
	if ContainsMarkers(doc.Text) {
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyBootstrapped, path)
	}

	decls, err := b.locators.Locate(path, []byte(doc.Text))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if len(decls) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoDeclarations, path)
	}

	seen := make(map[string]bool, len(decls))
	names := make([]string, 0, len(decls))
	for _, d := range decls {
		if seen[d.Name] {
			return Result{}, fmt.Errorf("%w: %q in %s", ErrDuplicateBlock, d.Name, path)
		}
		seen[d.Name] = true
		names = append(names, d.Name)
	}
	if err := checkDisjoint(decls); err != nil {
		return Result{}, fmt.Errorf("%w in %s", err, path)
	}

	text := Insert(doc.Text, decls, SyntaxFor(path))
	enc, err := textfile.Write(path, text, doc.Encoding)
	if err != nil {
		return Result{}, err
	}

	logging.Anchor("bootstrapped %s with %d blocks", path, len(decls))
	return Result{Blocks: len(decls), Names: names, Encoding: enc}, nil
}

// Insert places a start marker directly above and an end marker directly
// below each declaration. Insertions run bottom-up so earlier line numbers
// stay valid.
func Insert(text string, decls []locator.Declaration, syntax Syntax) string {
	lines := SplitLines(text)
	eol := ""
	if UsesCRLF(text) {
		eol = "\r"
	}

	ordered := make([]locator.Declaration, len(decls))
	copy(ordered, decls)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StartLine > ordered[j].StartLine })

	for _, d := range ordered {
		end := d.EndLine
		if end > len(lines) {
			end = len(lines)
		}
		lines = insertLine(lines, end, d.Indent+syntax.End(d.Name)+eol)
		lines = insertLine(lines, d.StartLine-1, d.Indent+syntax.Start(d.Name)+eol)
	}
	return JoinLines(lines)
}

// checkDisjoint rejects declarations whose line ranges touch, such as two
// functions written on one line.
func checkDisjoint(decls []locator.Declaration) error {
	ordered := make([]locator.Declaration, len(decls))
	copy(ordered, decls)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StartLine < ordered[j].StartLine })

	for i := 1; i < len(ordered); i++ {
		prev, d := ordered[i-1], ordered[i]
		if d.StartLine <= prev.EndLine {
			return fmt.Errorf("%w: %q (line %d) and %q (line %d)",
				ErrOverlappingDeclarations, prev.Name, prev.StartLine, d.Name, d.StartLine)
		}
	}
	return nil
}

func insertLine(lines []string, at int, line string) []string {
	lines = append(lines, "")
	copy(lines[at+1:], lines[at:])
	lines[at] = line
	return lines
}
