package locator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"

	"sentinel/internal/logging"
)

// GoLocator finds top-level funcs and methods with go/ast. Methods are named
// Recv.Method so they stay unique within a file.
type GoLocator struct{}

// NewGoLocator creates a Go locator.
func NewGoLocator() *GoLocator { return &GoLocator{} }

// Language returns "go".
func (g *GoLocator) Language() string { return "go" }

// SupportedExtensions returns [".go"].
func (g *GoLocator) SupportedExtensions() []string { return []string{".go"} }

// Locate implements Locator.
func (g *GoLocator) Locate(path string, content []byte) ([]Declaration, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	lines := splitLines(content)
	var decls []Declaration
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}

		startPos := fn.Pos()
		if fn.Doc != nil {
			startPos = fn.Doc.Pos()
		}
		start := fset.Position(startPos).Line
		end := fset.Position(fn.End()).Line

		name := fn.Name.Name
		if fn.Recv != nil && len(fn.Recv.List) > 0 {
			if recv := receiverName(fn.Recv.List[0].Type); recv != "" {
				name = recv + "." + name
			}
		}

		decls = append(decls, Declaration{
			Name:      name,
			StartLine: start,
			EndLine:   end,
			Indent:    indentOf(lines, start),
		})
	}

	logging.AnchorDebug("go locator: %s - %d declarations", filepath.Base(path), len(decls))
	return decls, nil
}

// receiverName unwraps *T, T[K] and *T[K, V] to T.
func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	case *ast.ParenExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}
