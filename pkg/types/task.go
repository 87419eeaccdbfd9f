// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Status indicates the outcome of converting a single document.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Task describes one discovered document and where its output belongs.
// Tasks are produced by the path resolver and consumed once by the batch
// runner; target paths are uniquely determined by Rel. Homonym sources
// that map to the same targets, report.doc next to report.docx, are
// resolved at discovery time by marking all but one of them through
// CollidesWith.
type Task struct {
	// Source is the absolute path of the document to convert.
	Source string `json:"source" yaml:"source"`

	// Rel is the slash-separated path of the document relative to the
	// input root. Output locations mirror it.
	Rel string `json:"rel" yaml:"rel"`

	// MarkdownPath is the target Markdown file under the output root
	// (Rel with its extension swapped to .md).
	MarkdownPath string `json:"markdown_path" yaml:"markdown_path"`

	// AssetDir is the sibling folder receiving extracted images
	// (<stem>_files next to the Markdown file). It is only created for
	// documents that embed at least one image.
	AssetDir string `json:"asset_dir" yaml:"asset_dir"`

	// CollidesWith names the sibling document that claims the same
	// output paths, when one exists. The runner skips marked tasks so
	// concurrent workers never write the same Markdown file or asset
	// folder.
	CollidesWith string `json:"collides_with,omitempty" yaml:"collides_with,omitempty"`
}

// Result records the outcome of one Task.
type Result struct {
	Task Task `json:"task" yaml:"task"`

	// Status is the outcome tag: converted, skipped, or failed.
	Status Status `json:"status" yaml:"status"`

	// Message carries the diagnostic for skipped and failed outcomes.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Images is the number of image assets written for this document.
	Images int `json:"images" yaml:"images"`
}
