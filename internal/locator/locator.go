// Package locator finds the top-level function declarations of a source
// file. Each supported grammar has its own Locator; callers pick one by file
// extension through a Factory and get back plain line ranges, so the anchor
// bootstrapper never sees a syntax tree.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

var (
	// ErrSyntax means the source could not be parsed cleanly.
	ErrSyntax = errors.New("source has syntax errors")
	// ErrNoLocator means no locator handles the file extension.
	ErrNoLocator = errors.New("no declaration locator for extension")
)

// Declaration is one top-level declaration. Lines are 1-based and
// inclusive; StartLine covers decorators, attributes or doc comments that
// belong to the declaration.
type Declaration struct {
	Name      string
	StartLine int
	EndLine   int
	Indent    string
}

// Locator extracts top-level declarations for one language.
type Locator interface {
	// Locate returns declarations in source order.
	Locate(path string, content []byte) ([]Declaration, error)

	// SupportedExtensions lists handled extensions with the leading dot.
	SupportedExtensions() []string

	// Language returns a short language id ("py", "go", "js", "rs").
	Language() string
}

// parseTree runs a tree-sitter parse and rejects trees containing error
// nodes. The caller must Close the tree.
func parseTree(lang *sitter.Language, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	root := tree.RootNode()
	if root.HasError() {
		p := firstError(root)
		tree.Close()
		return nil, fmt.Errorf("%w: near line %d", ErrSyntax, p.Row+1)
	}
	return tree, nil
}

func firstError(n *sitter.Node) sitter.Point {
	if n.IsError() || n.IsMissing() {
		return n.StartPoint()
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && c.HasError() {
			return firstError(c)
		}
	}
	return n.StartPoint()
}

// spanLines converts a node range into 1-based inclusive lines. A node that
// ends at column 0 finishes on the previous line.
func spanLines(start, end sitter.Point) (int, int) {
	first := int(start.Row) + 1
	last := int(end.Row) + 1
	if end.Column == 0 && end.Row > start.Row {
		last = int(end.Row)
	}
	return first, last
}

func indentOf(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	text := lines[line-1]
	return text[:len(text)-len(strings.TrimLeft(text, " \t"))]
}

func splitLines(content []byte) []string {
	return strings.Split(string(content), "\n")
}
