// Package bundle recognises bundle file names and turns bundle files into
// script text.
//
// A bundle is named <tag>-<project-id>-<token>.<ext>, for example
// SentScript-proj-1a2b-fix3.txt. The project id routes the bundle to a
// registered directory; the token only makes the name unique.
package bundle

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrMalformedName        = errors.New("not a bundle name")
	ErrUnsupportedExtension = errors.New("unsupported bundle extension")
	ErrMissingHeader        = errors.New("script header missing")
)

// DefaultPrefix starts every bundle name.
const DefaultPrefix = "SentScript-"

// DefaultExtensions are the extensions Extract understands.
var DefaultExtensions = []string{"txt", "docx"}

// Name is a parsed bundle file name.
type Name struct {
	Tag       string
	ProjectID string
	Token     string
	Ext       string // lower case, without the dot
}

// Matcher parses bundle names for one tag and extension set.
type Matcher struct {
	prefix     string
	pattern    *regexp.Regexp
	extensions map[string]bool
}

// NewMatcher builds a Matcher. prefix is the tag followed by "-"; an empty
// prefix or extension list means the defaults.
func NewMatcher(prefix string, extensions []string) *Matcher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	tag := regexp.QuoteMeta(strings.TrimSuffix(prefix, "-"))
	pattern := regexp.MustCompile(`^(?P<tag>` + tag + `)-(?P<project>[A-Za-z0-9]+-[A-Za-z0-9]+)-(?P<token>[A-Za-z0-9][A-Za-z0-9._-]*)\.(?P<ext>[A-Za-z0-9]+)$`)

	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return &Matcher{prefix: prefix, pattern: pattern, extensions: exts}
}

// Prefix returns the name prefix used for remote listing.
func (m *Matcher) Prefix() string { return m.prefix }

// Parse splits a base file name into its parts. Names that do not follow the
// pattern fail with ErrMalformedName; names with an extension outside the
// accepted set fail with ErrUnsupportedExtension.
func (m *Matcher) Parse(name string) (Name, error) {
	match := m.pattern.FindStringSubmatch(name)
	if match == nil {
		return Name{}, fmt.Errorf("%w: %q", ErrMalformedName, name)
	}
	n := Name{
		Tag:       match[m.pattern.SubexpIndex("tag")],
		ProjectID: match[m.pattern.SubexpIndex("project")],
		Token:     match[m.pattern.SubexpIndex("token")],
		Ext:       strings.ToLower(match[m.pattern.SubexpIndex("ext")]),
	}
	if !m.extensions[n.Ext] {
		return n, fmt.Errorf("%w: %q", ErrUnsupportedExtension, name)
	}
	return n, nil
}

// Label is a short human description used in prompts and history.
func (n Name) Label() string {
	return fmt.Sprintf("%s (%s.%s)", n.ProjectID, n.Token, n.Ext)
}
