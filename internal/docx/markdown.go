// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
)

// toMarkdown renders the HTML fragment produced by the body parser as
// Markdown and applies the output cleanup pass.
func toMarkdown(fragment string) (string, error) {
	normalized, err := normalizeHTML(fragment)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(normalized) == "" {
		return "\n", nil
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	md, err := conv.ConvertString(normalized)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return cleanMarkdown(md), nil
}

// normalizeHTML parses the generated fragment into a well-formed tree and
// drops empty paragraphs left over from the body walk.
func normalizeHTML(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() == 0 && strings.TrimSpace(s.Text()) == "" {
			s.Remove()
		}
	})
	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serializing html: %w", err)
	}
	return body, nil
}

var (
	lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// cleanMarkdown normalizes line endings, collapses runs of three or more
// newlines to a single blank line, and guarantees exactly one trailing
// newline.
func cleanMarkdown(md string) string {
	md = lineEndings.Replace(md)
	md = blankRuns.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md) + "\n"
}
