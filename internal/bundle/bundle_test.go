package bundle

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	m := NewMatcher("", nil)

	n, err := m.Parse("SentScript-proj-1a2b-fix-3.v2.txt")
	require.NoError(t, err)
	assert.Equal(t, Name{Tag: "SentScript", ProjectID: "proj-1a2b", Token: "fix-3.v2", Ext: "txt"}, n)

	n, err = m.Parse("SentScript-proj-ffff-A.DOCX")
	require.NoError(t, err)
	assert.Equal(t, "docx", n.Ext)
	assert.Equal(t, "proj-ffff (A.docx)", n.Label())
}

func TestParseNameRejects(t *testing.T) {
	m := NewMatcher("", nil)
	malformed := []string{
		"notes.txt",
		"SentScript-proj1a2b-x.txt",   // project id lacks the dash
		"SentScript-proj-1a2b-.txt",   // empty token
		"SentScript-proj-1a2b-_x.txt", // token must start alphanumeric
		"sentscript-proj-1a2b-x.txt",  // tag is case sensitive
		"SentScript-proj-1a2b-x",
		"xSentScript-proj-1a2b-x.txt",
	}
	for _, name := range malformed {
		_, err := m.Parse(name)
		assert.ErrorIs(t, err, ErrMalformedName, name)
	}

	_, err := m.Parse("SentScript-proj-1a2b-x.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedExtension)
}

func TestCustomPrefix(t *testing.T) {
	m := NewMatcher("Patch-", []string{".txt"})
	_, err := m.Parse("Patch-proj-1a2b-x.txt")
	assert.NoError(t, err)
	_, err = m.Parse("SentScript-proj-1a2b-x.txt")
	assert.ErrorIs(t, err, ErrMalformedName)
	_, err = m.Parse("Patch-proj-1a2b-x.docx")
	assert.ErrorIs(t, err, ErrUnsupportedExtension)
}

func TestCheckHeader(t *testing.T) {
	assert.NoError(t, CheckHeader("<# patch #>\nWrite-Host hi", "<#"))
	assert.NoError(t, CheckHeader("\ufeff \n\t<#", "<#"))
	assert.ErrorIs(t, CheckHeader("Write-Host hi", "<#"), ErrMissingHeader)
	assert.ErrorIs(t, CheckHeader("", "<#"), ErrMissingHeader)
}

func TestExtractText(t *testing.T) {
	text, err := Extract([]byte("\ufeff<# x #>\r\nrun"), "txt")
	require.NoError(t, err)
	assert.Equal(t, "<# x #>\r\nrun", text)

	text, err = Extract([]byte("<# caf\xe9 #>"), "TXT")
	require.NoError(t, err)
	assert.Equal(t, "<# café #>", text)
}

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types/>`))
	require.NoError(t, err)
	w, err = zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDocx(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:r><w:t>&lt;# patch #&gt;</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t xml:space="preserve">sentinel </w:t><w:t>patch</w:t><w:tab/><w:t>a.py</w:t></w:r></w:p>`+
			`<w:p/>`+
			`<w:p><w:r><w:t>one</w:t><w:br/><w:t>two</w:t></w:r></w:p>`)

	text, err := Extract(data, "docx")
	require.NoError(t, err)
	assert.Equal(t, "<# patch #>\nsentinel patch\ta.py\n\none\ntwo", text)
	assert.NoError(t, CheckHeader(text, "<#"))
}

func TestExtractDocxIgnoresLayoutProperties(t *testing.T) {
	tabStops := `<w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/><w:tab w:val="right" w:pos="9360"/></w:tabs></w:pPr>`
	data := buildDocx(t,
		`<w:p>`+tabStops+`<w:r><w:t>&lt;# indented</w:t></w:r></w:p>`+
			`<w:p>`+tabStops+`<w:r><w:rPr><w:b/></w:rPr><w:t>Write-Host</w:t><w:tab/><w:t>hi</w:t></w:r></w:p>`+
			`<w:p><w:pPr><w:rPr><w:br/></w:rPr></w:pPr><w:r><w:t>end</w:t></w:r></w:p>`+
			`<w:sectPr><w:pgSz w:w="12240"/></w:sectPr>`)

	text, err := Extract(data, "docx")
	require.NoError(t, err)
	assert.Equal(t, "<# indented\nWrite-Host\thi\nend", text)
	assert.NoError(t, CheckHeader(text, "<#"))
}

func TestExtractDocxTextBox(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:r><w:t>&lt;# outer</w:t></w:r>`+
			`<w:r><w:txbxContent><w:p><w:r><w:t>inner</w:t></w:r></w:p></w:txbxContent></w:r>`+
			`<w:r><w:t> tail</w:t></w:r></w:p>`)

	text, err := Extract(data, "docx")
	require.NoError(t, err)
	assert.Equal(t, "inner\n<# outer tail", text)
}

func TestExtractDocxCorrupt(t *testing.T) {
	_, err := Extract([]byte("not a zip"), "docx")
	assert.Error(t, err)
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SentScript-proj-1a2b-x.txt")
	require.NoError(t, os.WriteFile(path, []byte("<# hi"), 0644))

	text, err := ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<# hi", text)

	_, err = Extract([]byte("x"), "pdf")
	assert.ErrorIs(t, err, ErrUnsupportedExtension)
}
