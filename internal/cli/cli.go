// Package cli implements the sleuthprint command-line interface.
//
// Commands:
//   - render: lay out a job config and write the PDF
//   - inspect: show the resolved layout of a job without rendering
//
// All commands accept --verbose (-v) for debug logging; the logger travels
// through the command context.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ByLCY/sleuthprint/apperr"
)

// Version is stamped at build time.
var Version = "dev"

// RootCommand builds the command tree. Logs go to logs; command output goes to cobra's stdout.
func RootCommand(logs io.Writer) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "sleuthprint",
		Short:         "sleuthprint lays out party-game cards, documents and books as print-ready PDFs",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(logs, level)))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")

	root.AddCommand(newRenderCmd())
	root.AddCommand(newInspectCmd())
	return root
}

// Execute runs the CLI with args under ctx.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := RootCommand(stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		printError(stderr, "%s", describe(err))
	}
	return err
}

// describe 为错误加上错误码前缀，便于脚本匹配。
func describe(err error) string {
	if code := apperr.GetCode(err); code != "" {
		return string(code) + ": " + apperr.UserMessage(err)
	}
	return err.Error()
}
