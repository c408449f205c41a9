package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "resumer",
	Short: "Summarize structured course documents into a PDF",
	Long: `resumer splits a document into sections and subsections using textual
markers such as "Unit 1" and "Lesson 2", summarizes every subsection with a
local language model, and exports the result as a PDF.

Configuration comes from resumer.yaml (or --config) and the environment.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./resumer.yaml or $HOME/.resumer/resumer.yaml)")
}
