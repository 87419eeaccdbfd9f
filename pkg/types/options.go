package types

import "time"

// Options holds the runtime settings for a batch conversion run.
type Options struct {
	// Recursive controls whether subdirectories of the input root are
	// scanned for documents.
	Recursive bool `json:"recursive" yaml:"recursive"`

	// IncludeDoc enables discovery and pre-conversion of legacy .doc
	// files, which require an external LibreOffice installation.
	IncludeDoc bool `json:"include_doc" yaml:"include_doc"`

	// Overwrite reconverts documents whose Markdown target already
	// exists; without it such documents are skipped.
	Overwrite bool `json:"overwrite" yaml:"overwrite"`

	// Jobs is the number of concurrent conversion workers (default 1,
	// strictly sequential).
	Jobs int `json:"jobs" yaml:"jobs"`

	// DocTimeout bounds a single external .doc to .docx invocation.
	DocTimeout time.Duration `json:"doc_timeout" yaml:"doc_timeout"`
}
