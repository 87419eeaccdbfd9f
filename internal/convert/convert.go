// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert runs batches of document conversion tasks. Each task is
// converted in isolation: one bad document marks its own result failed and
// the batch moves on. Results are collected into a report whose order is
// deterministic regardless of worker count.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/docs2md/internal/docx"
	"github.com/pdiddy/docs2md/internal/office"
	"github.com/pdiddy/docs2md/pkg/types"
)

// Converter renders one DOCX file as Markdown plus extracted images.
type Converter interface {
	// Convert reads the DOCX at path and returns its converted document.
	Convert(path string) (docx.Document, error)
}

// Runner executes conversion tasks and writes their outputs.
type Runner struct {
	// Docx converts DOCX content. Required.
	Docx Converter

	// Office pre-converts legacy .doc files to DOCX. When nil, .doc
	// tasks are skipped with an installation hint.
	Office office.Tool

	// Out receives per-file progress lines and the batch summary. A nil
	// Out silences them.
	Out io.Writer

	// Log receives diagnostics. A nil Log discards them.
	Log *logrus.Logger

	// Opts carries the batch settings.
	Opts types.Options

	// docMu serializes external tool invocations; LibreOffice does not
	// tolerate concurrent headless instances sharing a profile.
	docMu sync.Mutex
}

// Run processes every task and returns the aggregated report. Task failures
// are recorded in the report, not returned; the error covers batch-level
// problems only. Report order follows the task ordering (case-insensitive
// by relative path, ties broken by the raw path) for any worker count.
func (r *Runner) Run(ctx context.Context, tasks []types.Task) (*types.Report, error) {
	if r.Docx == nil {
		return nil, errors.New("runner requires a docx converter")
	}
	if r.Out == nil {
		r.Out = io.Discard
	}
	if r.Log == nil {
		r.Log = logrus.New()
		r.Log.SetOutput(io.Discard)
	}

	results := r.runAll(ctx, tasks)
	sort.Slice(results, func(i, j int) bool {
		a, b := strings.ToLower(results[i].Task.Rel), strings.ToLower(results[j].Task.Rel)
		if a != b {
			return a < b
		}
		return results[i].Task.Rel < results[j].Task.Rel
	})

	report := &types.Report{}
	for _, res := range results {
		report.Add(res)
	}
	r.summarize(report)
	return report, nil
}

func (r *Runner) runAll(ctx context.Context, tasks []types.Task) []types.Result {
	jobs := r.Opts.Jobs
	if jobs > len(tasks) {
		jobs = len(tasks)
	}
	if jobs <= 1 {
		results := make([]types.Result, 0, len(tasks))
		for _, task := range tasks {
			res := r.runTask(ctx, task)
			r.progress(res)
			results = append(results, res)
		}
		return results
	}

	taskCh := make(chan types.Task, len(tasks))
	resCh := make(chan types.Result, len(tasks))
	var wg sync.WaitGroup
	for range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				resCh <- r.runTask(ctx, task)
			}
		}()
	}
	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)
	go func() {
		wg.Wait()
		close(resCh)
	}()

	results := make([]types.Result, 0, len(tasks))
	for res := range resCh {
		r.progress(res)
		results = append(results, res)
	}
	return results
}

// runTask converts one document. It never panics the batch: every outcome,
// including an unsupported extension or a cancelled context, becomes a
// result.
func (r *Runner) runTask(ctx context.Context, task types.Task) types.Result {
	if err := ctx.Err(); err != nil {
		return failed(task, err.Error())
	}
	// Collided tasks are skipped regardless of Overwrite; running one
	// would race the winning task for the same output paths.
	if task.CollidesWith != "" {
		return types.Result{Task: task, Status: types.StatusSkipped,
			Message: fmt.Sprintf("output collides with %s", task.CollidesWith)}
	}
	if !r.Opts.Overwrite {
		if _, err := os.Stat(task.MarkdownPath); err == nil {
			return types.Result{Task: task, Status: types.StatusSkipped, Message: "already exists"}
		}
	}

	switch strings.ToLower(filepath.Ext(task.Source)) {
	case ".docx":
		return r.convertDocx(task, task.Source)
	case ".doc":
		return r.convertDoc(ctx, task)
	default:
		return failed(task, fmt.Sprintf("unsupported extension %q", filepath.Ext(task.Source)))
	}
}

// convertDoc pre-converts a legacy document to DOCX in a per-task temp
// directory, then hands the intermediate to the DOCX path. The temp
// directory keeps same-named intermediates from different input folders
// apart.
func (r *Runner) convertDoc(ctx context.Context, task types.Task) types.Result {
	if r.Office == nil {
		return types.Result{Task: task, Status: types.StatusSkipped, Message: office.ErrToolMissing.Error()}
	}

	tmpDir, err := os.MkdirTemp("", "docs2md-*")
	if err != nil {
		return failed(task, fmt.Sprintf("creating temp dir: %v", err))
	}
	defer os.RemoveAll(tmpDir)

	r.docMu.Lock()
	intermediate, err := r.Office.Convert(ctx, task.Source, tmpDir)
	r.docMu.Unlock()
	if err != nil {
		if errors.Is(err, office.ErrToolMissing) {
			return types.Result{Task: task, Status: types.StatusSkipped, Message: err.Error()}
		}
		return failed(task, err.Error())
	}
	return r.convertDocx(task, intermediate)
}

func (r *Runner) convertDocx(task types.Task, path string) types.Result {
	doc, err := r.Docx.Convert(path)
	if err != nil {
		return failed(task, err.Error())
	}
	if err := commit(task, doc); err != nil {
		return failed(task, err.Error())
	}
	return types.Result{Task: task, Status: types.StatusConverted, Images: len(doc.Images)}
}

// commit writes the Markdown file and image assets for one document.
// Images are written first, the Markdown file last; any write error undoes
// what this call created so a failed task leaves no partial output. The
// asset folder is only created for documents that embed images.
func commit(task types.Task, doc docx.Document) error {
	if err := os.MkdirAll(filepath.Dir(task.MarkdownPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var written []string
	rollback := func() {
		for _, p := range written {
			os.Remove(p)
		}
		if len(doc.Images) > 0 {
			os.Remove(task.AssetDir)
		}
	}

	if len(doc.Images) > 0 {
		if err := os.MkdirAll(task.AssetDir, 0o755); err != nil {
			return fmt.Errorf("creating asset directory: %w", err)
		}
		for _, img := range doc.Images {
			p := filepath.Join(task.AssetDir, img.Name())
			if err := os.WriteFile(p, img.Data, 0o644); err != nil {
				rollback()
				return fmt.Errorf("writing image %s: %w", img.Name(), err)
			}
			written = append(written, p)
		}
	}

	if err := os.WriteFile(task.MarkdownPath, []byte(doc.Markdown), 0o644); err != nil {
		os.Remove(task.MarkdownPath)
		rollback()
		return fmt.Errorf("writing markdown: %w", err)
	}
	return nil
}

func (r *Runner) progress(res types.Result) {
	switch res.Status {
	case types.StatusConverted:
		fmt.Fprintf(r.Out, "converted: %s\n", res.Task.Rel)
	case types.StatusSkipped:
		fmt.Fprintf(r.Out, "skipped: %s (%s)\n", res.Task.Rel, res.Message)
	default:
		fmt.Fprintf(r.Out, "failed:  %s (%s)\n", res.Task.Rel, res.Message)
	}
	r.Log.WithFields(logrus.Fields{
		"file":   res.Task.Rel,
		"status": res.Status,
		"images": res.Images,
	}).Debug("task finished")
}

func (r *Runner) summarize(report *types.Report) {
	fmt.Fprintf(r.Out, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		report.Converted, report.Skipped, report.Failed, report.Total())
	if report.HasFailures() {
		fmt.Fprintln(r.Out, "Failures:")
		for _, res := range report.Failures() {
			fmt.Fprintf(r.Out, "  %s: %s\n", res.Task.Rel, res.Message)
		}
	}
}

func failed(task types.Task, msg string) types.Result {
	return types.Result{Task: task, Status: types.StatusFailed, Message: msg}
}
