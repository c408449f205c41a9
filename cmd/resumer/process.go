package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/resumer/internal/parser"
	"github.com/dgallion1/resumer/internal/pipeline"
)

var processOpts struct {
	sections    string
	subSections string
	title       string
	filename    string
	subject     string
	language    string
}

var processCmd = &cobra.Command{
	Use:   "process <input>",
	Short: "Summarize a document and export it as a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !parser.IsSupportedExtension(args[0]) {
			return parser.ErrUnsupportedFormat
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)
		gen := newGenerator(cfg)
		defer gen.Close()
		deps := buildDeps(cfg, gen, log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := cmd.OutOrStdout()
		progress := &progressPrinter{w: w}
		res := deps.Processor.Process(ctx, pipeline.Request{
			InputPath:         args[0],
			SectionPattern:    processOpts.sections,
			SubSectionPattern: processOpts.subSections,
			Title:             processOpts.title,
			Filename:          processOpts.filename,
			Subject:           processOpts.subject,
			Language:          processOpts.language,
		}, progress.update)

		printResult(w, res)
		if !res.Success {
			return errors.New(res.Message)
		}
		return nil
	},
}

func init() {
	f := processCmd.Flags()
	f.StringVar(&processOpts.sections, "sections", pipeline.DefaultSectionPattern, "section marker keyword")
	f.StringVar(&processOpts.subSections, "subsections", pipeline.DefaultSubSectionPattern, "subsection marker keyword")
	f.StringVar(&processOpts.title, "title", pipeline.DefaultTitle, "title for the exported PDF")
	f.StringVar(&processOpts.filename, "filename", "", "output PDF name (default document-summary-<timestamp>.pdf)")
	f.StringVar(&processOpts.subject, "subject", "", "subject the document covers, used in prompts")
	f.StringVar(&processOpts.language, "language", "", "language for summaries (default: same as the source)")
	rootCmd.AddCommand(processCmd)
}
