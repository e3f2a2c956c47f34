package locator

import (
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"sentinel/internal/logging"
)

// RustLocator finds top-level fn items with tree-sitter. Attributes directly
// above a function (#[test], #[inline]) belong to it.
type RustLocator struct{}

// NewRustLocator creates a Rust locator.
func NewRustLocator() *RustLocator { return &RustLocator{} }

// Language returns "rs".
func (r *RustLocator) Language() string { return "rs" }

// SupportedExtensions returns [".rs"].
func (r *RustLocator) SupportedExtensions() []string { return []string{".rs"} }

// Locate implements Locator.
func (r *RustLocator) Locate(path string, content []byte) ([]Declaration, error) {
	tree, err := parseTree(rust.GetLanguage(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	lines := splitLines(content)
	root := tree.RootNode()

	var decls []Declaration
	var attrStart *sitter.Node
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)

		switch child.Type() {
		case "attribute_item":
			if attrStart == nil {
				attrStart = child
			}
			continue
		case "function_item":
			nameNode := child.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			first := child
			if attrStart != nil {
				first = attrStart
			}
			start, _ := spanLines(first.StartPoint(), first.EndPoint())
			_, end := spanLines(child.StartPoint(), child.EndPoint())
			decls = append(decls, Declaration{
				Name:      nameNode.Content(content),
				StartLine: start,
				EndLine:   end,
				Indent:    indentOf(lines, start),
			})
		}
		attrStart = nil
	}

	logging.AnchorDebug("rust locator: %s - %d declarations", filepath.Base(path), len(decls))
	return decls, nil
}
