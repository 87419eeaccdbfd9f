// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// bodyParser streams word/document.xml and writes an HTML fragment.
// WordprocessingML nests runs inside paragraphs inside (optionally) table
// cells; the parser tracks just enough of that structure to emit headings,
// paragraphs, nested lists, tables, inline emphasis, hyperlinks, and
// images. Unknown elements are walked through so their text is never lost.
type bodyParser struct {
	cont        *container
	assetPrefix string
	log         *logrus.Logger

	html   strings.Builder
	images []Image

	lists []*listLevel

	para       *paragraph
	run        *runState
	linkHref   string
	pendingAlt string
	inPPr      bool
	inNumPr    bool
	inText     bool
	inDrawing  bool
}

// listLevel is one open list container in the HTML output.
type listLevel struct {
	tag    string // "ul" or "ol"
	liOpen bool
}

// paragraph accumulates one w:p worth of inline content plus the
// properties that decide its block wrapper.
type paragraph struct {
	style  string
	numID  string
	ilvl   int
	hasNum bool
	spans  []span
}

// runState holds the formatting of the run currently being read.
type runState struct {
	bold   bool
	italic bool
}

type spanKind int

const (
	spanText spanKind = iota
	spanBreak
	spanImage
)

// span is one unit of inline paragraph content.
type span struct {
	kind   spanKind
	text   string
	bold   bool
	italic bool
	href   string
	src    string
	alt    string
}

func newBodyParser(cont *container, assetPrefix string, log *logrus.Logger) *bodyParser {
	return &bodyParser{cont: cont, assetPrefix: assetPrefix, log: log}
}

// parse consumes the document XML token stream. Any XML error aborts the
// document; the caller classifies it as invalid content.
func (p *bodyParser) parse(r io.Reader) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.startElement(t)
		case xml.EndElement:
			p.endElement(t)
		case xml.CharData:
			if p.inText && p.para != nil {
				p.addText(string(t))
			}
		}
	}
	p.closeLists(0)
	return nil
}

func (p *bodyParser) startElement(t xml.StartElement) {
	switch t.Name.Local {
	case "p":
		p.para = &paragraph{}
	case "pPr":
		p.inPPr = true
	case "pStyle":
		if p.inPPr && p.para != nil {
			p.para.style = attr(t, "val")
		}
	case "numPr":
		if p.inPPr && p.para != nil {
			p.inNumPr = true
		}
	case "numId":
		if p.inNumPr && p.para != nil {
			p.para.numID = attr(t, "val")
			// numId 0 marks a paragraph explicitly removed from its list.
			p.para.hasNum = p.para.numID != "" && p.para.numID != "0"
		}
	case "ilvl":
		if p.inNumPr && p.para != nil {
			p.para.ilvl, _ = strconv.Atoi(attr(t, "val"))
		}
	case "r":
		if !p.inPPr {
			p.run = &runState{}
		}
	case "b":
		if p.run != nil && !p.inPPr {
			p.run.bold = onOff(attr(t, "val"))
		}
	case "i":
		if p.run != nil && !p.inPPr {
			p.run.italic = onOff(attr(t, "val"))
		}
	case "t":
		if p.para != nil {
			p.inText = true
		}
	case "br", "cr":
		if p.para != nil && !p.inPPr {
			p.para.spans = append(p.para.spans, span{kind: spanBreak})
		}
	case "tab":
		if p.para != nil && p.run != nil {
			p.addText(" ")
		}
	case "hyperlink":
		p.linkHref = p.resolveLink(t)
	case "drawing":
		p.inDrawing = true
		p.pendingAlt = ""
	case "docPr":
		if p.inDrawing {
			p.pendingAlt = attr(t, "descr")
		}
	case "blip":
		rid := attr(t, "embed")
		if rid == "" {
			rid = attr(t, "link")
		}
		p.addImage(rid)
	case "imagedata":
		p.addImage(attr(t, "id"))
	case "tbl":
		p.closeLists(0)
		p.html.WriteString("<table>")
	case "tr":
		p.html.WriteString("<tr>")
	case "tc":
		p.html.WriteString("<td>")
	}
}

func (p *bodyParser) endElement(t xml.EndElement) {
	switch t.Name.Local {
	case "p":
		p.flushParagraph()
	case "pPr":
		p.inPPr = false
	case "numPr":
		p.inNumPr = false
	case "r":
		p.run = nil
	case "t":
		p.inText = false
	case "hyperlink":
		p.linkHref = ""
	case "drawing":
		p.inDrawing = false
		p.pendingAlt = ""
	case "tbl":
		p.closeLists(0)
		p.html.WriteString("</table>")
	case "tr":
		p.html.WriteString("</tr>")
	case "tc":
		p.closeLists(0)
		p.html.WriteString("</td>")
	}
}

// addText appends a text span carrying the current run formatting and
// hyperlink target.
func (p *bodyParser) addText(text string) {
	s := span{kind: spanText, text: text, href: p.linkHref}
	if p.run != nil {
		s.bold = p.run.bold
		s.italic = p.run.italic
	}
	p.para.spans = append(p.para.spans, s)
}

// resolveLink turns a w:hyperlink element into an href: an in-document
// anchor, or a target resolved through the relationship table.
func (p *bodyParser) resolveLink(t xml.StartElement) string {
	if anchor := attr(t, "anchor"); anchor != "" {
		return "#" + anchor
	}
	rid := attr(t, "id")
	if rel, ok := p.cont.rels[rid]; ok {
		return rel.Target
	}
	return ""
}

// addImage captures the image behind a relationship id, assigns it the
// next sequence number, and records an <img> span pointing into the asset
// folder. External images keep their original URL and produce no asset.
// A reference that cannot be resolved is dropped with a warning rather
// than failing the document.
func (p *bodyParser) addImage(rid string) {
	if rid == "" || p.para == nil {
		return
	}
	rel, ok := p.cont.rels[rid]
	if !ok {
		p.log.WithField("rid", rid).Warn("image relationship not found, image omitted")
		return
	}
	if rel.external() {
		p.para.spans = append(p.para.spans, span{kind: spanImage, src: rel.Target, alt: p.pendingAlt, href: p.linkHref})
		return
	}

	part := partName(rel.Target)
	data, err := p.cont.readPart(part)
	if err != nil {
		p.log.WithField("part", part).Warn("image part unreadable, image omitted")
		return
	}

	contentType := p.cont.ctypes.forPart(part)
	img := Image{
		Seq:         len(p.images) + 1,
		Ext:         extensionFor(contentType, data),
		ContentType: contentType,
		Data:        data,
	}
	p.images = append(p.images, img)

	src := p.assetPrefix + "/" + img.Name()
	p.para.spans = append(p.para.spans, span{kind: spanImage, src: src, alt: p.pendingAlt, href: p.linkHref})
}

// flushParagraph renders the accumulated paragraph as a list item,
// heading, or plain paragraph and resets the paragraph state.
func (p *bodyParser) flushParagraph() {
	para := p.para
	p.para = nil
	if para == nil {
		return
	}
	inner := renderSpans(mergeSpans(para.spans))

	if para.hasNum {
		depth := para.ilvl + 1
		if depth < 1 {
			depth = 1
		}
		tag := "ul"
		if p.cont.nums.ordered(para.numID, para.ilvl) {
			tag = "ol"
		}
		p.listItem(depth, tag, inner)
		return
	}

	// A non-list paragraph ends any open list, even when empty.
	p.closeLists(0)
	if strings.TrimSpace(inner) == "" {
		return
	}
	if lvl := headingLevel(para.style); lvl > 0 {
		fmt.Fprintf(&p.html, "<h%d>%s</h%d>", lvl, inner, lvl)
		return
	}
	p.html.WriteString("<p>" + inner + "</p>")
}

// listItem writes one <li>, opening and closing list containers until the
// stack matches the item's depth and kind. The produced HTML keeps nested
// lists inside their parent <li>.
func (p *bodyParser) listItem(depth int, tag, inner string) {
	for len(p.lists) > depth {
		p.closeListLevel()
	}
	if len(p.lists) == depth && p.lists[depth-1].tag != tag {
		p.closeListLevel()
	}
	for len(p.lists) < depth {
		if n := len(p.lists); n > 0 && !p.lists[n-1].liOpen {
			p.html.WriteString("<li>")
			p.lists[n-1].liOpen = true
		}
		p.html.WriteString("<" + tag + ">")
		p.lists = append(p.lists, &listLevel{tag: tag})
	}
	lvl := p.lists[depth-1]
	if lvl.liOpen {
		p.html.WriteString("</li>")
	}
	p.html.WriteString("<li>" + inner)
	lvl.liOpen = true
}

// closeListLevel closes the innermost open list. The parent's <li> stays
// open; it closes when its own level closes or its next item arrives.
func (p *bodyParser) closeListLevel() {
	lvl := p.lists[len(p.lists)-1]
	p.lists = p.lists[:len(p.lists)-1]
	if lvl.liOpen {
		p.html.WriteString("</li>")
	}
	p.html.WriteString("</" + lvl.tag + ">")
}

// closeLists closes open list containers down to the given depth.
func (p *bodyParser) closeLists(depth int) {
	for len(p.lists) > depth {
		p.closeListLevel()
	}
}

// mergeSpans coalesces adjacent text spans with identical formatting so
// split runs do not produce fragmented emphasis markers.
func mergeSpans(spans []span) []span {
	var out []span
	for _, s := range spans {
		if s.kind == spanText && len(out) > 0 {
			last := &out[len(out)-1]
			if last.kind == spanText && last.bold == s.bold && last.italic == s.italic && last.href == s.href {
				last.text += s.text
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// renderSpans writes the inline HTML for a paragraph, grouping consecutive
// spans that share a hyperlink target under one anchor.
func renderSpans(spans []span) string {
	var b strings.Builder
	for i := 0; i < len(spans); {
		if spans[i].href != "" {
			j := i
			for j < len(spans) && spans[j].href == spans[i].href {
				j++
			}
			b.WriteString(`<a href="` + html.EscapeString(spans[i].href) + `">`)
			writeSpans(&b, spans[i:j])
			b.WriteString("</a>")
			i = j
			continue
		}
		writeSpans(&b, spans[i:i+1])
		i++
	}
	return b.String()
}

func writeSpans(b *strings.Builder, spans []span) {
	for _, s := range spans {
		switch s.kind {
		case spanBreak:
			b.WriteString("<br/>")
		case spanImage:
			b.WriteString(`<img src="` + html.EscapeString(s.src) + `" alt="` + html.EscapeString(s.alt) + `"/>`)
		default:
			text := html.EscapeString(s.text)
			if s.bold {
				text = "<strong>" + text + "</strong>"
			}
			if s.italic {
				text = "<em>" + text + "</em>"
			}
			b.WriteString(text)
		}
	}
}

// headingLevel maps a paragraph style ID to an HTML heading level, or 0
// for body text. Word names its built-in heading styles Heading1 through
// Heading9; levels past 6 clamp to 6.
func headingLevel(style string) int {
	s := strings.ToLower(style)
	switch s {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	rest, ok := strings.CutPrefix(s, "heading")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || n < 1 {
		return 0
	}
	if n > 6 {
		return 6
	}
	return n
}

// onOff interprets a WordprocessingML toggle attribute, where absence
// means on.
func onOff(val string) bool {
	switch strings.ToLower(val) {
	case "", "1", "true", "on":
		return true
	default:
		return false
	}
}

// attr returns the value of the attribute with the given local name,
// ignoring its namespace prefix.
func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
