// Package cli implements the mdbook-split commands.
package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matze/mdbook-split/internal/book"
	"github.com/matze/mdbook-split/internal/config"
	"github.com/matze/mdbook-split/internal/markdown"
	"github.com/matze/mdbook-split/internal/split"
)

// CompatibleVersion is the mdbook release line the protocol was written
// against. Other versions still run, with a warning.
const CompatibleVersion = "0.4."

// NewRootCmd creates the root command. Without a subcommand it runs as an
// mdbook preprocessor: `[context, book]` JSON on stdin, book JSON on stdout.
func NewRootCmd(cfg config.Config, log *slog.Logger) *cobra.Command {
	pre := split.New(log, markdown.Options{HeadingAttributes: cfg.HeadingAttributes})

	root := &cobra.Command{
		Use:           "mdbook-split",
		Short:         "mdbook-split - split chapters at every top-level heading",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFilter(cmd, pre, log)
		},
	}
	root.AddCommand(NewSupportsCmd(pre))
	root.AddCommand(NewFileCmd(cfg))
	root.AddCommand(NewServeCmd(cfg, pre, log))
	return root
}

func runFilter(cmd *cobra.Command, pre *split.Preprocessor, log *slog.Logger) error {
	bctx, b, err := book.ParseInput(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if bctx.MdbookVersion != "" && !strings.HasPrefix(bctx.MdbookVersion, CompatibleVersion) {
		log.Warn("mdbook version differs from the one this preprocessor was built for",
			"mdbook_version", bctx.MdbookVersion, "compatible", CompatibleVersion+"x")
	}

	out, err := pre.Run(cmd.Context(), bctx, b)
	if err != nil {
		return err
	}
	if err := book.Encode(cmd.OutOrStdout(), out); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

// NewSupportsCmd creates the supports subcommand. The host calls it before
// a build; exit status 0 means the renderer is supported.
func NewSupportsCmd(pre *split.Preprocessor) *cobra.Command {
	return &cobra.Command{
		Use:   "supports <renderer>",
		Short: "Report whether a renderer is supported",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if !pre.SupportsRenderer(args[0]) {
				return fmt.Errorf("renderer %q is not supported", args[0])
			}
			return nil
		},
	}
}
