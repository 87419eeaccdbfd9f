// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docx converts DOCX documents into Markdown. The document body is
// transformed into an HTML fragment first, preserving headings, lists,
// tables, emphasis, hyperlinks, and images, and the fragment is then
// rendered as Markdown. Embedded images are captured in memory and
// referenced through relative links into a sibling asset folder; nothing
// is written to disk here.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrInvalidDocument reports malformed or corrupted DOCX content: not a
// ZIP archive, a missing document part, or broken XML inside one.
var ErrInvalidDocument = errors.New("invalid docx document")

const (
	documentPart     = "word/document.xml"
	documentRelsPart = "word/_rels/document.xml.rels"
	numberingPart    = "word/numbering.xml"
	contentTypesPart = "[Content_Types].xml"
)

// Image is one embedded picture extracted from a document.
type Image struct {
	// Seq is the 1-based position of the image within its document.
	// Occurrences are numbered in document order, so a picture embedded
	// twice yields two assets.
	Seq int

	// Ext is the inferred file extension, dot included.
	Ext string

	// ContentType is the content type the package declared for the
	// image part, when it declared one.
	ContentType string

	// Data is the raw image bytes.
	Data []byte
}

// Name returns the asset file name, image<Seq><Ext>.
func (img Image) Name() string {
	return fmt.Sprintf("image%d%s", img.Seq, img.Ext)
}

// Document is the outcome of converting one DOCX file.
type Document struct {
	// Markdown is the rendered text, normalized to LF line endings with
	// a single trailing newline.
	Markdown string

	// Images holds the embedded images in sequence order. The Markdown
	// references them as <stem>_files/image<N>.<ext> relative to the
	// Markdown file's own directory.
	Images []Image
}

// Converter turns DOCX files into Markdown with extracted images.
// Conversion is stateless, so one Converter may be shared across
// goroutines.
type Converter struct {
	log *logrus.Logger
}

// NewConverter returns a Converter reporting diagnostics on log. A nil
// log discards them.
func NewConverter(log *logrus.Logger) *Converter {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Converter{log: log}
}

// Convert parses the DOCX container at docPath and produces Markdown text
// plus the document's embedded images, buffered in memory. Image links in
// the Markdown point into <stem>_files/, where stem is docPath's base name
// without extension.
func (c *Converter) Convert(docPath string) (Document, error) {
	stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))

	zr, err := zip.OpenReader(docPath)
	if err != nil {
		return Document{}, fmt.Errorf("opening %s: %w: %v", docPath, ErrInvalidDocument, err)
	}
	defer zr.Close()

	cont, err := openContainer(&zr.Reader)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", docPath, err)
	}

	body, err := cont.readPart(documentPart)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w: %v", docPath, ErrInvalidDocument, err)
	}

	parser := newBodyParser(cont, stem+"_files", c.log)
	if err := parser.parse(bytes.NewReader(body)); err != nil {
		return Document{}, fmt.Errorf("parsing %s: %w: %v", docPath, ErrInvalidDocument, err)
	}

	md, err := toMarkdown(parser.html.String())
	if err != nil {
		return Document{}, fmt.Errorf("converting %s: %w", docPath, err)
	}

	c.log.WithFields(logrus.Fields{"file": docPath, "images": len(parser.images)}).Debug("document converted")
	return Document{Markdown: md, Images: parser.images}, nil
}

// relTarget is one entry of the document relationship table.
type relTarget struct {
	Target string
	Mode   string
}

// external reports whether the relationship points outside the package
// (an http URL rather than an embedded part).
func (r relTarget) external() bool {
	return strings.EqualFold(r.Mode, "External")
}

// contentTypes resolves part names to declared content types, combining
// the package's per-extension defaults with per-part overrides.
type contentTypes struct {
	defaults  map[string]string // lowercase extension, no dot -> content type
	overrides map[string]string // part name with leading slash -> content type
}

func (ct contentTypes) forPart(part string) string {
	if t, ok := ct.overrides["/"+part]; ok {
		return t
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(part)), ".")
	return ct.defaults[ext]
}

// container indexes the parts of one opened DOCX package.
type container struct {
	parts  map[string]*zip.File
	rels   map[string]relTarget
	ctypes contentTypes
	nums   numbering
}

// openContainer indexes the archive and parses the package metadata parts.
// The relationship table, content types, and numbering definitions are
// each optional; when present but unparseable the document is rejected as
// invalid.
func openContainer(zr *zip.Reader) (*container, error) {
	cont := &container{
		parts: make(map[string]*zip.File, len(zr.File)),
		rels:  map[string]relTarget{},
		ctypes: contentTypes{
			defaults:  map[string]string{},
			overrides: map[string]string{},
		},
	}
	for _, f := range zr.File {
		cont.parts[path.Clean(f.Name)] = f
	}

	if data, err := cont.readPart(documentRelsPart); err == nil {
		if err := cont.parseRels(data); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, documentRelsPart, err)
		}
	}
	if data, err := cont.readPart(contentTypesPart); err == nil {
		if err := cont.parseContentTypes(data); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, contentTypesPart, err)
		}
	}
	if data, err := cont.readPart(numberingPart); err == nil {
		nums, err := parseNumbering(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, numberingPart, err)
		}
		cont.nums = nums
	}
	return cont, nil
}

// readPart returns the decompressed content of one package part.
func (c *container) readPart(name string) ([]byte, error) {
	f, ok := c.parts[name]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening part %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading part %s: %w", name, err)
	}
	return data, nil
}

// partName resolves a relationship target, which is relative to word/
// unless it starts with a slash, to a package part name.
func partName(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join("word", target))
}

func (c *container) parseRels(data []byte) error {
	var doc struct {
		Rels []struct {
			ID         string `xml:"Id,attr"`
			Target     string `xml:"Target,attr"`
			TargetMode string `xml:"TargetMode,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return err
	}
	for _, r := range doc.Rels {
		c.rels[r.ID] = relTarget{Target: r.Target, Mode: r.TargetMode}
	}
	return nil
}

func (c *container) parseContentTypes(data []byte) error {
	var doc struct {
		Defaults []struct {
			Extension   string `xml:"Extension,attr"`
			ContentType string `xml:"ContentType,attr"`
		} `xml:"Default"`
		Overrides []struct {
			PartName    string `xml:"PartName,attr"`
			ContentType string `xml:"ContentType,attr"`
		} `xml:"Override"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return err
	}
	for _, d := range doc.Defaults {
		c.ctypes.defaults[strings.ToLower(d.Extension)] = d.ContentType
	}
	for _, o := range doc.Overrides {
		c.ctypes.overrides[o.PartName] = o.ContentType
	}
	return nil
}
