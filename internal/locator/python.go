package locator

import (
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"sentinel/internal/logging"
)

// PythonLocator finds module-level functions, including async and decorated
// ones, with tree-sitter.
type PythonLocator struct{}

// NewPythonLocator creates a Python locator.
func NewPythonLocator() *PythonLocator { return &PythonLocator{} }

// Language returns "py".
func (p *PythonLocator) Language() string { return "py" }

// SupportedExtensions returns [".py", ".pyw"].
func (p *PythonLocator) SupportedExtensions() []string { return []string{".py", ".pyw"} }

// Locate implements Locator.
func (p *PythonLocator) Locate(path string, content []byte) ([]Declaration, error) {
	tree, err := parseTree(python.GetLanguage(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	lines := splitLines(content)
	root := tree.RootNode()

	var decls []Declaration
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)

		var fn *sitter.Node
		switch child.Type() {
		case "function_definition":
			fn = child
		case "decorated_definition":
			// Start at the first decorator.
			if def := child.ChildByFieldName("definition"); def != nil && def.Type() == "function_definition" {
				fn = def
			}
		}
		if fn == nil {
			continue
		}
		nameNode := fn.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}

		start, end := spanLines(child.StartPoint(), child.EndPoint())
		decls = append(decls, Declaration{
			Name:      nameNode.Content(content),
			StartLine: start,
			EndLine:   end,
			Indent:    indentOf(lines, start),
		})
	}

	logging.AnchorDebug("python locator: %s - %d declarations", filepath.Base(path), len(decls))
	return decls, nil
}
