package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/resumer/internal/outline"
	"github.com/dgallion1/resumer/internal/parser"
	"github.com/dgallion1/resumer/internal/pipeline"
)

var detectOpts struct {
	sections    string
	subSections string
}

var detectCmd = &cobra.Command{
	Use:   "detect <input>",
	Short: "Print the section outline of a document without summarizing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		det, err := outline.NewDetector(detectOpts.sections, detectOpts.subSections)
		if err != nil {
			return err
		}
		text, err := parser.NewExtractor(parser.Options{PDFFallback: cfg.PDFFallbackPdftotext}).ExtractFile(args[0])
		if err != nil {
			return err
		}

		sections := det.WithLogger(log).Detect(text)
		printOutline(cmd.OutOrStdout(), sections, outline.NumberingWarnings(sections))
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectOpts.sections, "sections", pipeline.DefaultSectionPattern, "section marker keyword")
	detectCmd.Flags().StringVar(&detectOpts.subSections, "subsections", pipeline.DefaultSubSectionPattern, "subsection marker keyword")
	rootCmd.AddCommand(detectCmd)
}
