// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNS = ` xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
	` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
	` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
	` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
	` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"` +
	` xmlns:v="urn:schemas-microsoft-com:vml"`

// docPkg describes the synthetic DOCX a test wants built.
type docPkg struct {
	body      string            // contents of <w:body>
	rels      string            // extra Relationship elements
	media     map[string][]byte // part under word/ -> bytes
	parts     map[string]string // extra XML parts under word/
	defaults  map[string]string // content-type defaults: ext -> type
	overrides map[string]string // content-type overrides: /part -> type
}

// buildDocx assembles a minimal DOCX package on disk and returns its path.
func buildDocx(t *testing.T, name string, pkg docPkg) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(partName, content string) {
		t.Helper()
		w, err := zw.Create(partName)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	var cts strings.Builder
	cts.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Default Extension="png" ContentType="image/png"/>`)
	for ext, ct := range pkg.defaults {
		fmt.Fprintf(&cts, `<Default Extension=%q ContentType=%q/>`, ext, ct)
	}
	for part, ct := range pkg.overrides {
		fmt.Fprintf(&cts, `<Override PartName=%q ContentType=%q/>`, part, ct)
	}
	cts.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`)
	write("[Content_Types].xml", cts.String())

	write("_rels/.rels", `<?xml version="1.0"?>`+
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>`+
		`</Relationships>`)
	write("word/_rels/document.xml.rels", `<?xml version="1.0"?>`+
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+pkg.rels+`</Relationships>`)
	write("word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<w:document`+testNS+`><w:body>`+pkg.body+`</w:body></w:document>`)

	for part, content := range pkg.parts {
		write("word/"+part, content)
	}
	for part, data := range pkg.media {
		w, err := zw.Create("word/" + part)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func run(text string) string {
	return "<w:r><w:t>" + text + "</w:t></w:r>"
}

func para(runs string) string {
	return "<w:p>" + runs + "</w:p>"
}

func styled(style, runs string) string {
	return `<w:p><w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>` + runs + `</w:p>`
}

func listPara(numID string, ilvl int, text string) string {
	return fmt.Sprintf(`<w:p><w:pPr><w:numPr><w:ilvl w:val="%d"/><w:numId w:val="%s"/></w:numPr></w:pPr>%s</w:p>`,
		ilvl, numID, run(text))
}

func imageRun(rid, descr string) string {
	return `<w:r><w:drawing><wp:inline><wp:docPr id="1" name="Picture" descr="` + descr + `"/>` +
		`<a:graphic><a:graphicData><pic:pic><pic:blipFill><a:blip r:embed="` + rid + `"/>` +
		`</pic:blipFill></pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`
}

func imageRel(rid, target string) string {
	return `<Relationship Id="` + rid + `" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="` + target + `"/>`
}

// pngBytes returns data carrying the PNG signature.
func pngBytes() []byte {
	return append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
		0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1)
}

const testNumbering = `<?xml version="1.0"?><w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:numFmt w:val="bullet"/></w:lvl><w:lvl w:ilvl="1"><w:numFmt w:val="bullet"/></w:lvl></w:abstractNum>` +
	`<w:abstractNum w:abstractNumId="1"><w:lvl w:ilvl="0"><w:numFmt w:val="decimal"/></w:lvl></w:abstractNum>` +
	`<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>` +
	`<w:num w:numId="2"><w:abstractNumId w:val="1"/></w:num>` +
	`</w:numbering>`

func TestConvertHeadingsAndEmphasis(t *testing.T) {
	body := styled("Heading1", run("Quarterly Report")) +
		styled("Heading2", run("Revenue")) +
		para(run("Plain text with ")+
			`<w:r><w:rPr><w:b/></w:rPr><w:t>bold</w:t></w:r>`+
			run(" and ")+
			`<w:r><w:rPr><w:i/></w:rPr><w:t>italic</w:t></w:r>`+
			run(" words."))
	path := buildDocx(t, "report.docx", docPkg{body: body})

	doc, err := NewConverter(nil).Convert(path)
	require.NoError(t, err)

	assert.Contains(t, doc.Markdown, "# Quarterly Report")
	assert.Contains(t, doc.Markdown, "## Revenue")
	assert.Contains(t, doc.Markdown, "**bold**")
	assert.Contains(t, doc.Markdown, "*italic*")
	assert.Empty(t, doc.Images)
	assert.True(t, strings.HasSuffix(doc.Markdown, "\n"), "markdown should end with one newline")
}

func TestConvertSplitRunsMerge(t *testing.T) {
	// Word frequently splits one bold phrase across several runs; the
	// output must not contain fragmented emphasis markers.
	body := para(`<w:r><w:rPr><w:b/></w:rPr><w:t>split </w:t></w:r>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:t>phrase</w:t></w:r>`)
	path := buildDocx(t, "split.docx", docPkg{body: body})

	doc, err := NewConverter(nil).Convert(path)
	require.NoError(t, err)
	assert.Contains(t, doc.Markdown, "**split phrase**")
	assert.NotContains(t, doc.Markdown, "****")
}

func TestConvertLists(t *testing.T) {
	body := listPara("1", 0, "apples") +
		listPara("1", 0, "oranges") +
		listPara("1", 1, "blood oranges") +
		para(run("interlude")) +
		listPara("2", 0, "first") +
		listPara("2", 0, "second")
	path := buildDocx(t, "lists.docx", docPkg{
		body:  body,
		parts: map[string]string{"numbering.xml": testNumbering},
	})

	doc, err := NewConverter(nil).Convert(path)
	require.NoError(t, err)

	assert.Contains(t, doc.Markdown, "- apples")
	assert.Contains(t, doc.Markdown, "- oranges")
	assert.Regexp(t, regexp.MustCompile(`(?m)^\s+- blood oranges`), doc.Markdown,
		"nested item should be indented")
	assert.Contains(t, doc.Markdown, "1. first")
	assert.Contains(t, doc.Markdown, "2. second")
}

func TestConvertListWithoutNumberingPart(t *testing.T) {
	// No numbering.xml: list paragraphs degrade to unordered items.
	path := buildDocx(t, "bare.docx", docPkg{body: listPara("7", 0, "entry")})

	doc, err := NewConverter(nil).Convert(path)
	require.NoError(t, err)
	assert.Contains(t, doc.Markdown, "- entry")
}

func TestConvertHyperlink(t *testing.T) {
	body := para(`<w:hyperlink r:id="rId4">` + run("project site") + `</w:hyperlink>`)
	rels := `<Relationship Id="rId4" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com/" TargetMode="External"/>`
	path := buildDocx(t, "links.docx", docPkg{body: body, rels: rels})

	doc, err := NewConverter(nil).Convert(path)
	require.NoError(t, err)
	assert.Contains(t, doc.Markdown, "[project site](https://example.com/)")
}

func TestConvertAnchorLink(t *testing.T) {
	body := para(`<w:hyperlink w:anchor="summary">` + run("see summary") + `</w:hyperlink>`)
	path := buildDocx(t, "anchor.docx", docPkg{body: body})

	doc, err := NewConverter(nil).Convert(path)
	require.NoError(t, err)
	assert.Contains(t, doc.Markdown, "[see summary](#summary)")
}

func TestConvertTable(t *testing.T) {
	cell := func(text string) string { return "<w:tc>" + para(run(text)) + "</w:tc>" }
	body := "<w:tbl>" +
		"<w:tr>" + cell("name") + cell("role") + "</w:tr>" +
		"<w:tr>" + cell("ada") + cell("engineer") + "</w:tr>" +
		"</w:tbl>"
	path := buildDocx(t, "table.docx", docPkg{body: body})

	doc, err := NewConverter(nil).Convert(path)
	require.NoError(t, err)

	for _, want := range []string{"name", "role", "ada", "engineer"} {
		assert.Contains(t, doc.Markdown, want)
	}
	assert.Contains(t, doc.Markdown, "|", "table should render in pipe syntax")
	assert.Regexp(t, regexp.MustCompile(`-{3}`), doc.Markdown, "table should have a separator row")
}

func TestConvertImages(t *testing.T) {
	body := para(imageRun("rId10", "diagram")) + para(imageRun("rId11", ""))
	rels := imageRel("rId10", "media/image1.png") + imageRel("rId11", "media/image2.png")
	path := buildDocx(t, "report.docx", docPkg{
		body: body,
		rels: rels,
		media: map[string][]byte{
			"media/image1.png": pngBytes(),
			"media/image2.png": pngBytes(),
		},
	})

	doc, err := NewConverter(nil).Convert(path)
	require.NoError(t, err)

	require.Len(t, doc.Images, 2)
	assert.Equal(t, 1, doc.Images[0].Seq)
	assert.Equal(t, 2, doc.Images[1].Seq)
	assert.Equal(t, ".png", doc.Images[0].Ext)
	assert.Equal(t, "image1.png", doc.Images[0].Name())
	assert.Equal(t, "image2.png", doc.Images[1].Name())
	assert.Equal(t, pngBytes(), doc.Images[0].Data)

	assert.Contains(t, doc.Markdown, "![diagram](report_files/image1.png)")
	assert.Contains(t, doc.Markdown, "(report_files/image2.png)")
}

func TestConvertRepeatedImageGetsFreshSequence(t *testing.T) {
	// The same embedded picture referenced twice yields two assets, so
	// sequence numbers stay contiguous.
	body := para(imageRun("rId10", "")) + para(imageRun("rId10", ""))
	path := buildDocx(t, "twice.docx", docPkg{
		body:  body,
		rels:  imageRel("rId10", "media/image1.png"),
		media: map[string][]byte{"media/image1.png": pngBytes()},
	})

	doc, err := NewConverter(nil).Convert(path)
	require.NoError(t, err)
	require.Len(t, doc.Images, 2)
	assert.Equal(t, "image1.png", doc.Images[0].Name())
	assert.Equal(t, "image2.png", doc.Images[1].Name())
	assert.Contains(t, doc.Markdown, "twice_files/image1.png")
	assert.Contains(t, doc.Markdown, "twice_files/image2.png")
}

func TestConvertImageWithMissingRelationship(t *testing.T) {
	// A dangling r:embed id drops the image but keeps the document.
	path := buildDocx(t, "dangling.docx", docPkg{body: para(imageRun("rId99", ""))})

	doc, err := NewConverter(nil).Convert(path)
	require.NoError(t, err)
	assert.Empty(t, doc.Images)
	assert.Equal(t, "\n", doc.Markdown)
}

func TestConvertExternalImage(t *testing.T) {
	body := para(imageRun("rId12", ""))
	rels := `<Relationship Id="rId12" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="https://example.com/logo.png" TargetMode="External"/>`
	path := buildDocx(t, "ext.docx", docPkg{body: body, rels: rels})

	doc, err := NewConverter(nil).Convert(path)
	require.NoError(t, err)
	assert.Empty(t, doc.Images, "external image should not produce an asset")
	assert.Contains(t, doc.Markdown, "https://example.com/logo.png")
}

func TestConvertEmptyDocument(t *testing.T) {
	path := buildDocx(t, "empty.docx", docPkg{body: ""})

	doc, err := NewConverter(nil).Convert(path)
	require.NoError(t, err)
	assert.Equal(t, "\n", doc.Markdown)
	assert.Empty(t, doc.Images)
}

func TestConvertInvalidDocuments(t *testing.T) {
	t.Run("not a zip archive", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.docx")
		require.NoError(t, os.WriteFile(path, []byte("this is not a zip file"), 0o644))

		_, err := NewConverter(nil).Convert(path)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("zip without document part", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, err := zw.Create("word/styles.xml")
		require.NoError(t, err)
		_, err = w.Write([]byte("<styles/>"))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		path := filepath.Join(t.TempDir(), "hollow.docx")
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

		_, err = NewConverter(nil).Convert(path)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("broken body xml", func(t *testing.T) {
		path := buildDocx(t, "torn.docx", docPkg{body: "<w:p><w:r>"})

		_, err := NewConverter(nil).Convert(path)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})
}

func TestConvertDeterministic(t *testing.T) {
	body := styled("Heading1", run("Stable")) +
		para(run("text")) +
		para(imageRun("rId10", ""))
	path := buildDocx(t, "same.docx", docPkg{
		body:  body,
		rels:  imageRel("rId10", "media/image1.png"),
		media: map[string][]byte{"media/image1.png": pngBytes()},
	})

	c := NewConverter(nil)
	first, err := c.Convert(path)
	require.NoError(t, err)
	second, err := c.Convert(path)
	require.NoError(t, err)

	assert.Equal(t, first.Markdown, second.Markdown)
	require.Equal(t, len(first.Images), len(second.Images))
	for i := range first.Images {
		assert.Equal(t, first.Images[i], second.Images[i])
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := []struct {
		style string
		want  int
	}{
		{"Heading1", 1},
		{"heading3", 3},
		{"Heading6", 6},
		{"Heading9", 6},
		{"Title", 1},
		{"Subtitle", 2},
		{"Normal", 0},
		{"Heading", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, headingLevel(tt.style), "style %q", tt.style)
	}
}
