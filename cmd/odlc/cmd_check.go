package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"odlc/internal/compiler"
	"odlc/internal/format"
	"odlc/internal/loader"
	"odlc/internal/logging"
)

var checkMarkdown bool

var checkCmd = &cobra.Command{
	Use:           "check <file>",
	Short:         "Validate an organization definition without emitting IR",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkMarkdown, "markdown", false, "render the diagnostic table as Markdown instead of ASCII")
}

func runCheck(cmd *cobra.Command, args []string) error {
	tree, err := loader.LoadFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, report := compiler.Compile(context.Background(), tree, &compiler.LogObserver{Logger: logging.New("odlc")})
	if report == nil {
		fmt.Fprintln(out, "OK")
		return nil
	}

	mode := format.ASCII
	if checkMarkdown {
		mode = format.Markdown
	}
	fmt.Fprintln(out, format.Report(mode, report))
	return &exitError{code: 1}
}
