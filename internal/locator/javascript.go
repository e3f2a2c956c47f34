package locator

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"sentinel/internal/logging"
)

// JavaScriptLocator finds top-level function declarations in JavaScript and
// TypeScript, including exported ones. The grammar follows the extension.
type JavaScriptLocator struct{}

// NewJavaScriptLocator creates a JavaScript/TypeScript locator.
func NewJavaScriptLocator() *JavaScriptLocator { return &JavaScriptLocator{} }

// Language returns "js".
func (j *JavaScriptLocator) Language() string { return "js" }

// SupportedExtensions returns the JavaScript and TypeScript extensions.
func (j *JavaScriptLocator) SupportedExtensions() []string {
	return []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx"}
}

func grammarFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

func isFunctionDecl(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "function_declaration", "generator_function_declaration",
		"function", "function_expression", "generator_function":
		return true
	}
	return false
}

// Locate implements Locator.
func (j *JavaScriptLocator) Locate(path string, content []byte) ([]Declaration, error) {
	tree, err := parseTree(grammarFor(path), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	lines := splitLines(content)
	root := tree.RootNode()

	var decls []Declaration
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)

		fn := child
		if child.Type() == "export_statement" {
			fn = child.ChildByFieldName("declaration")
			if fn == nil {
				// export default function name() {} may parse as an expression.
				fn = child.ChildByFieldName("value")
			}
		}
		if !isFunctionDecl(fn) {
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

	logging.AnchorDebug("js locator: %s - %d declarations", filepath.Base(path), len(decls))
	return decls, nil
}
