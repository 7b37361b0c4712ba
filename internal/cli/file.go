package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matze/mdbook-split/internal/config"
	"github.com/matze/mdbook-split/internal/markdown"
	"github.com/matze/mdbook-split/internal/split"
)

type manifestEntry struct {
	Name  string `yaml:"name"`
	Path  string `yaml:"path"`
	Bytes int    `yaml:"bytes"`
}

type manifest struct {
	Source   string          `yaml:"source"`
	Chapters []manifestEntry `yaml:"chapters"`
}

// NewFileCmd creates the file subcommand, which splits a single markdown
// file outside of an mdbook build.
func NewFileCmd(cfg config.Config) *cobra.Command {
	var (
		outDir            string
		headingAttributes bool
	)
	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Split one markdown file and print a YAML manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			data, err := os.ReadFile(src)
			if err != nil {
				return fmt.Errorf("reading %s: %w", src, err)
			}

			chapters, err := split.Document(string(data), markdown.Options{HeadingAttributes: headingAttributes})
			if err != nil {
				return fmt.Errorf("splitting %s: %w", src, err)
			}

			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("creating %s: %w", outDir, err)
				}
			}

			m := manifest{Source: src, Chapters: make([]manifestEntry, 0, len(chapters))}
			for _, ch := range chapters {
				if outDir != "" {
					target := filepath.Join(outDir, *ch.Path+".md")
					if err := os.WriteFile(target, []byte(ch.Content), 0o644); err != nil {
						return fmt.Errorf("writing %s: %w", target, err)
					}
				}
				m.Chapters = append(m.Chapters, manifestEntry{
					Name:  ch.Name,
					Path:  *ch.Path,
					Bytes: len(ch.Content),
				})
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(m); err != nil {
				return fmt.Errorf("encoding manifest: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write one <path>.md file per chapter")
	cmd.Flags().BoolVar(&headingAttributes, "heading-attributes", cfg.HeadingAttributes, "parse {#id .class} heading attributes")
	return cmd
}
