// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover enumerates convertible documents under an input root
// and computes the mirrored output location for each one.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/docs2md/pkg/types"
)

// ErrInputNotFound reports that the input root is missing or not a
// directory. It is the only error fatal to a whole run.
var ErrInputNotFound = errors.New("input directory not found")

// DefaultOutputDir returns the output root used when none is given:
// a "markdown" directory under the input root.
func DefaultOutputDir(inputDir string) string {
	return filepath.Join(inputDir, "markdown")
}

// Tasks lists the convertible documents under inputDir and maps each one
// to its mirrored Markdown and asset-folder targets under outputDir.
// Files with a .docx extension are considered, plus .doc when includeDoc
// is set; extensions match case-insensitively and symlinks to files count
// like the files they point at. When recursive is false only the top
// level of inputDir is scanned. The returned slice is ordered by relative
// path, compared case-insensitively with ties broken by the raw path, so
// repeated runs process files in the same order. Homonyms that map to the
// same Markdown target (report.doc next to report.docx) are marked
// through CollidesWith on all but one task.
func Tasks(inputDir, outputDir string, recursive, includeDoc bool) ([]types.Task, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, inputDir)
		}
		return nil, fmt.Errorf("stat %s: %w", inputDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInputNotFound, inputDir)
	}

	var files []string
	if recursive {
		walkErr := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if wantExt(path, includeDoc) && isFile(path, d) {
				files = append(files, path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("scanning %s: %w", inputDir, walkErr)
		}
	} else {
		entries, readErr := os.ReadDir(inputDir)
		if readErr != nil {
			return nil, fmt.Errorf("scanning %s: %w", inputDir, readErr)
		}
		for _, e := range entries {
			path := filepath.Join(inputDir, e.Name())
			if wantExt(e.Name(), includeDoc) && isFile(path, e) {
				files = append(files, path)
			}
		}
	}

	tasks := make([]types.Task, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(inputDir, f)
		if err != nil {
			return nil, fmt.Errorf("relativizing %s: %w", f, err)
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", f, err)
		}
		tasks = append(tasks, mapTask(abs, filepath.ToSlash(rel), outputDir))
	}

	sort.Slice(tasks, func(i, j int) bool {
		a, b := strings.ToLower(tasks[i].Rel), strings.ToLower(tasks[j].Rel)
		if a != b {
			return a < b
		}
		return tasks[i].Rel < tasks[j].Rel
	})
	markCollisions(tasks)
	return tasks, nil
}

// isFile reports whether the entry is a regular file, following symlinks
// so a linked document converts like the file it points at. Links to
// directories or to nothing do not count.
func isFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// markCollisions flags every task whose Markdown target is already
// claimed by another task, so the runner skips it instead of letting two
// documents race on one output file. Only homonyms in one directory
// collide (report.doc next to report.docx); the .docx twin wins since it
// converts without the external tool, otherwise the first in batch order
// does.
func markCollisions(tasks []types.Task) {
	claimed := make(map[string]int, len(tasks))
	for i := range tasks {
		j, ok := claimed[tasks[i].MarkdownPath]
		if !ok {
			claimed[tasks[i].MarkdownPath] = i
			continue
		}
		if isDocx(tasks[i].Source) && !isDocx(tasks[j].Source) {
			tasks[j].CollidesWith = tasks[i].Rel
			claimed[tasks[i].MarkdownPath] = i
			continue
		}
		tasks[i].CollidesWith = tasks[j].Rel
	}
}

func isDocx(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".docx")
}

// wantExt reports whether path carries a convertible extension.
func wantExt(path string, includeDoc bool) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return true
	case ".doc":
		return includeDoc
	default:
		return false
	}
}

// mapTask computes the mirrored output locations for one source file.
// For a document at relative path sub/dir/report.docx the Markdown target
// is <out>/sub/dir/report.md and the asset folder <out>/sub/dir/report_files.
func mapTask(source, rel, outputDir string) types.Task {
	relDir := filepath.Dir(filepath.FromSlash(rel))
	stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	outDir := filepath.Join(outputDir, relDir)
	return types.Task{
		Source:       source,
		Rel:          rel,
		MarkdownPath: filepath.Join(outDir, stem+".md"),
		AssetDir:     filepath.Join(outDir, stem+"_files"),
	}
}
