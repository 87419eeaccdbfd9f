// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docs2md CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docs2md/internal/convert"
	"github.com/pdiddy/docs2md/internal/discover"
	"github.com/pdiddy/docs2md/internal/docx"
	"github.com/pdiddy/docs2md/internal/office"
	"github.com/pdiddy/docs2md/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the docs2md CLI.
var rootCmd = &cobra.Command{
	Use:   "docs2md INPUT_DIR [OUTPUT_DIR]",
	Short: "Convert folders of Word documents to Markdown",
	Long: `docs2md converts a folder of Word documents to Markdown. DOCX files are
read directly; legacy .doc files are pre-converted through a headless
LibreOffice when --include-doc is set. Output mirrors the input folder
layout, and images embedded in a document are extracted into a
<name>_files/ folder next to its Markdown file.

The output directory defaults to <INPUT_DIR>/markdown. Every flag can
also be supplied as a DOCS2MD_* environment variable (for example
DOCS2MD_JOBS=4), read from the environment or a .env file in the
working directory.`,
	Args:         cobra.RangeArgs(1, 2),
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env file; absence is not an error.
		_ = godotenv.Load()
	},
	RunE: runBatch,
}

func init() {
	flags := rootCmd.Flags()
	flags.BoolP("recursive", "r", false, "scan subdirectories of the input directory")
	flags.Bool("include-doc", false, "also convert legacy .doc files (requires LibreOffice)")
	flags.Bool("overwrite", false, "reconvert documents whose Markdown output already exists")
	flags.Int("jobs", 1, "number of concurrent conversion workers")
	flags.Duration("doc-timeout", office.DefaultTimeout, "time limit for one .doc pre-conversion")
	flags.String("report", "", "write a YAML batch report to this file")
	flags.BoolP("verbose", "v", false, "enable debug logging")

	viper.SetEnvPrefix("DOCS2MD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputDir := args[0]
	outputDir := discover.DefaultOutputDir(inputDir)
	if len(args) == 2 {
		outputDir = args[1]
	}

	opts := types.Options{
		Recursive:  viper.GetBool("recursive"),
		IncludeDoc: viper.GetBool("include-doc"),
		Overwrite:  viper.GetBool("overwrite"),
		Jobs:       viper.GetInt("jobs"),
		DocTimeout: viper.GetDuration("doc-timeout"),
	}

	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	if viper.GetBool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	tasks, err := discover.Tasks(inputDir, outputDir, opts.Recursive, opts.IncludeDoc)
	if err != nil {
		return err
	}

	// A missing LibreOffice is not fatal: .doc tasks are skipped with a
	// hint while the rest of the batch proceeds.
	var tool office.Tool
	if opts.IncludeDoc {
		tool, err = office.Detect(opts.DocTimeout)
		if err != nil {
			log.Warn(err.Error())
			tool = nil
		}
	}

	runner := &convert.Runner{
		Docx:   docx.NewConverter(log),
		Office: tool,
		Out:    cmd.OutOrStdout(),
		Log:    log,
		Opts:   opts,
	}
	report, err := runner.Run(cmd.Context(), tasks)
	if err != nil {
		return err
	}

	if path := viper.GetString("report"); path != "" {
		if err := convert.WriteReport(path, report); err != nil {
			return err
		}
	}

	if report.HasFailures() {
		return fmt.Errorf("%d of %d documents failed", report.Failed, report.Total())
	}
	return nil
}

func main() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}
