// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package office locates a LibreOffice installation and drives headless
// .doc to .docx pre-conversion through it.
package office

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds a single external conversion when the caller does
// not choose one.
const DefaultTimeout = 2 * time.Minute

// ErrToolMissing reports that no LibreOffice binary was found on the PATH.
// Documents that need it are skipped, not failed.
var ErrToolMissing = errors.New("LibreOffice (soffice) not found on PATH; install LibreOffice to convert legacy .doc files")

// ErrConversionFailed reports that the external tool ran but produced no
// usable output (non-zero exit, bounded wait exceeded, or missing file).
var ErrConversionFailed = errors.New("external .doc conversion failed")

// Tool converts legacy documents through an external program. It is narrow
// on purpose so batch tests can substitute a fake without spawning
// processes.
type Tool interface {
	// Name identifies the underlying binary for logs and diagnostics.
	Name() string

	// Convert transforms the .doc file at docPath into a .docx inside
	// outDir and returns the path of the produced file. The produced
	// file keeps the source stem.
	Convert(ctx context.Context, docPath, outDir string) (string, error)
}

// executor abstracts binary lookup and process execution so tests never
// run real commands.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// osExecutor runs real processes.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// sofficeBins lists the binary names probed, in order.
var sofficeBins = []string{"soffice", "soffice.exe"}

// soffice is a Tool backed by a LibreOffice binary in headless mode.
type soffice struct {
	bin     string
	exec    executor
	timeout time.Duration
}

// Detect locates a LibreOffice binary and returns a Tool bound to it.
// It returns ErrToolMissing when none of the known binary names resolve.
// A non-positive timeout falls back to DefaultTimeout.
func Detect(timeout time.Duration) (Tool, error) {
	return detect(osExecutor{}, timeout)
}

func detect(exe executor, timeout time.Duration) (Tool, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	for _, bin := range sofficeBins {
		if path, err := exe.LookPath(bin); err == nil {
			return &soffice{bin: path, exec: exe, timeout: timeout}, nil
		}
	}
	return nil, ErrToolMissing
}

func (s *soffice) Name() string {
	return filepath.Base(s.bin)
}

// Convert runs the headless conversion under a bounded wait. soffice does
// not tolerate concurrent instances, so callers serialize invocations; no
// retry is attempted on failure.
func (s *soffice) Convert(ctx context.Context, docPath, outDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := []string{
		"--headless", "--nologo", "--nolockcheck", "--nodefault", "--norestore",
		"--convert-to", "docx", "--outdir", outDir, docPath,
	}
	_, stderr, err := s.exec.Run(ctx, s.bin, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %s timed out after %s on %s", ErrConversionFailed, s.Name(), s.timeout, docPath)
		}
		return "", fmt.Errorf("%w: %s: %v%s", ErrConversionFailed, s.Name(), err, stderrExcerpt(stderr))
	}

	stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	out := filepath.Join(outDir, stem+".docx")
	if _, statErr := os.Stat(out); statErr != nil {
		return "", fmt.Errorf("%w: %s produced no output for %s%s", ErrConversionFailed, s.Name(), docPath, stderrExcerpt(stderr))
	}
	return out, nil
}

// stderrExcerpt formats captured stderr for inclusion in error messages.
func stderrExcerpt(stderr string) string {
	s := strings.TrimSpace(stderr)
	if s == "" {
		return ""
	}
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return " (stderr: " + s + ")"
}
