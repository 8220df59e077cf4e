package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// previewFallbackWidth is used when stdout is not a terminal.
const previewFallbackWidth = 100

// previewCmd renders a generated Markdown conversation document in the
// terminal.
var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Render a generated Markdown conversation in the terminal.",
	Long: `preview pretty-prints a Markdown conversation document produced by a
run with --format markdown. HTML output should be opened in a browser
instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".markdown" {
			return fmt.Errorf("preview renders Markdown documents; '%s' is not one", path)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read '%s': %w", path, err)
		}

		width := previewFallbackWidth
		if term.IsTerminal(int(os.Stdout.Fd())) {
			if w, _, sizeErr := term.GetSize(int(os.Stdout.Fd())); sizeErr == nil && w > 0 {
				width = w
			}
		}

		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize markdown renderer: %w", err)
		}

		out, err := renderer.RenderBytes(content)
		if err != nil {
			return fmt.Errorf("failed to render '%s': %w", path, err)
		}

		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
