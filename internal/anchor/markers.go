package anchor

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Syntax is the comment style used for anchor markers in a file.
type Syntax int

const (
	// SyntaxMarkup wraps markers in <!-- -->. It is the fallback.
	SyntaxMarkup Syntax = iota
	// SyntaxHash uses # line comments.
	SyntaxHash
	// SyntaxSlash uses // line comments.
	SyntaxSlash
)

var syntaxByExt = map[string]Syntax{}

func init() {
	for _, ext := range []string{".py", ".pyw", ".ps1", ".psm1", ".sh", ".bash", ".rb", ".pl", ".r", ".yaml", ".yml", ".toml"} {
		syntaxByExt[ext] = SyntaxHash
	}
	for _, ext := range []string{".go", ".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx", ".rs", ".c", ".h", ".cpp", ".hpp", ".cs", ".java", ".kt", ".swift"} {
		syntaxByExt[ext] = SyntaxSlash
	}
}

// SyntaxFor picks the marker syntax from the file extension.
func SyntaxFor(path string) Syntax {
	if s, ok := syntaxByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return s
	}
	return SyntaxMarkup
}

func (s Syntax) String() string {
	switch s {
	case SyntaxHash:
		return "hash"
	case SyntaxSlash:
		return "slash"
	default:
		return "markup"
	}
}

// Start renders the start marker for block name, without indentation.
func (s Syntax) Start(name string) string { return s.render("BLOCK", name) }

// End renders the end marker for block name, without indentation.
func (s Syntax) End(name string) string { return s.render("ENDBLOCK", name) }

func (s Syntax) render(kind, name string) string {
	switch s {
	case SyntaxHash:
		return fmt.Sprintf("# --- %s: %s ---", kind, name)
	case SyntaxSlash:
		return fmt.Sprintf("// --- %s: %s ---", kind, name)
	default:
		return fmt.Sprintf("<!-- %s: %s -->", kind, name)
	}
}

var markerPatterns = map[Syntax]*regexp.Regexp{
	SyntaxHash:   regexp.MustCompile(`^\s*#\s*---\s+(BLOCK|ENDBLOCK):\s+(\S.*?)\s+---\s*$`),
	SyntaxSlash:  regexp.MustCompile(`^\s*//\s*---\s+(BLOCK|ENDBLOCK):\s+(\S.*?)\s+---\s*$`),
	SyntaxMarkup: regexp.MustCompile(`^\s*<!--\s+(BLOCK|ENDBLOCK):\s+(\S.*?)\s+-->\s*$`),
}

// markerTokens appear in every marker of some syntax. Any of them in a
// file means it has been bootstrapped already.
var markerTokens = []string{"--- BLOCK:", "--- ENDBLOCK:", "<!-- BLOCK:", "<!-- ENDBLOCK:"}

// ContainsMarkers reports whether text carries a marker of any syntax.
func ContainsMarkers(text string) bool {
	for _, tok := range markerTokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}

// Marker is one marker line found in a file.
type Marker struct {
	Line  int // 1-based
	Name  string
	IsEnd bool
}

// ParseMarker reports whether line is a marker in syntax s. Leading
// indentation and a trailing \r are allowed.
func (s Syntax) ParseMarker(line string) (Marker, bool) {
	m := markerPatterns[s].FindStringSubmatch(line)
	if m == nil {
		return Marker{}, false
	}
	return Marker{Name: m[2], IsEnd: m[1] == "ENDBLOCK"}, true
}

// Scan returns every marker line in lines, in order.
func (s Syntax) Scan(lines []string) []Marker {
	var out []Marker
	for i, line := range lines {
		if mk, ok := s.ParseMarker(line); ok {
			mk.Line = i + 1
			out = append(out, mk)
		}
	}
	return out
}

// Block is a matched start/end pair.
type Block struct {
	Name      string
	StartLine int // start marker line
	EndLine   int // end marker line
}

// Blocks pairs start and end markers by name. Names whose markers are
// missing, repeated or out of order are returned in problems instead.
func (s Syntax) Blocks(lines []string) (blocks []Block, problems []string) {
	starts := make(map[string][]int)
	ends := make(map[string][]int)
	var order []string
	for _, mk := range s.Scan(lines) {
		if _, seen := starts[mk.Name]; !seen {
			if _, seen := ends[mk.Name]; !seen {
				order = append(order, mk.Name)
			}
		}
		if mk.IsEnd {
			ends[mk.Name] = append(ends[mk.Name], mk.Line)
		} else {
			starts[mk.Name] = append(starts[mk.Name], mk.Line)
		}
	}

	for _, name := range order {
		st, en := starts[name], ends[name]
		switch {
		case len(st) == 0 || len(en) == 0:
			problems = append(problems, fmt.Sprintf("%s: unmatched marker", name))
		case len(st) > 1 || len(en) > 1:
			problems = append(problems, fmt.Sprintf("%s: duplicated markers", name))
		case en[0] < st[0]:
			problems = append(problems, fmt.Sprintf("%s: end marker before start", name))
		default:
			blocks = append(blocks, Block{Name: name, StartLine: st[0], EndLine: en[0]})
		}
	}
	return blocks, problems
}

// SplitLines splits text on \n, keeping any \r on each line so CRLF files
// survive a round trip through JoinLines.
func SplitLines(text string) []string {
	return strings.Split(text, "\n")
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// UsesCRLF reports whether text uses Windows line endings.
func UsesCRLF(text string) bool {
	return strings.Contains(text, "\r\n")
}
