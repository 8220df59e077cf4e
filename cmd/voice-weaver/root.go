package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/voiceweave/voice-weaver/internal/cli"
	"github.com/voiceweave/voice-weaver/internal/cli/config"
	"github.com/voiceweave/voice-weaver/pkg/weaver"
)

var (
	// Set at build time via -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Flags persistent across commands.
	cfgFile     string // Path to config file
	profileName string // Name of profile to use
	verbose     bool   // Verbose logging flag
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "voice-weaver -i <archiveDir> -o <outputDir>",
	Short: "Reconstructs conversations from a Google Voice Takeout archive.",
	Long: `voice-weaver reads the per-conversation HTML fragments of a Google Voice
Takeout export, stitches them back into complete conversation timelines,
and writes one document per conversation plus a cross-conversation index.

It features:
  - Parallel fragment parsing for speed.
  - Attachment resolution against the export's commingled media pool.
  - A pool scan cache for fast incremental runs.
  - Contact aliasing from a contacts file or an external lookup command.
  - HTML or Markdown output, customizable via Go templates.
  - An interactive Terminal UI (TUI) for monitoring progress.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Cancel the run on interrupt signals.
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, logger, err := config.LoadAndValidate(cfgFile, profileName, version, verbose, cmd.Flags())
		if err != nil {
			// LoadAndValidate already logged the specific error; returning
			// it lets cobra print it and exit non-zero.
			return err
		}

		// Brief delay before the TUI takes over stderr.
		if term.IsTerminal(int(os.Stderr.Fd())) && !verbose && opts.TuiEnabled {
			time.Sleep(100 * time.Millisecond)
		}

		return cli.Run(ctx, opts, logger)
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	// Cobra prints the error and exits non-zero if RunE returns an error.
	_ = rootCmd.Execute()
}

// init registers the root command's flags.
func init() {
	// Persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default is search standard locations like ., $HOME/.config/voice-weaver/)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Name of configuration profile to use")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	// Required input/output flags
	rootCmd.PersistentFlags().StringP("input", "i", "", "Required. Takeout archive directory path.")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Required. Output directory path for conversation documents.")
	_ = rootCmd.MarkPersistentFlagRequired("input")
	_ = rootCmd.MarkPersistentFlagRequired("output")

	// Core behavior flags
	rootCmd.Flags().BoolP("force", "f", false, "Write into a non-empty output directory that is not a previous run")
	rootCmd.Flags().Bool("no-tui", false, "Disable interactive Terminal UI even if in a TTY")
	rootCmd.Flags().String("onError", string(weaver.DefaultOnErrorMode), `Behavior on fragment-level errors ("continue" or "stop")`)

	// Performance & caching flags
	rootCmd.Flags().Int("concurrency", weaver.DefaultConcurrency, "Number of parallel workers (0 for auto-detect CPU cores)")
	rootCmd.Flags().Bool("no-cache", false, "Force a fresh pool scan by ignoring cache reads (still writes cache)")
	rootCmd.Flags().Bool("clear-cache", false, "Delete the pool scan cache file before starting")
	rootCmd.Flags().String("cache-format", weaver.DefaultCacheFormat, `On-disk cache encoding ("gob" or "json")`)

	// Output & formatting flags
	rootCmd.Flags().String("format", string(weaver.DefaultDocumentFormat), `Conversation document format ("html" or "markdown")`)
	rootCmd.Flags().String("report-format", string(weaver.DefaultReportFormat), `Final report format ("text" or "json")`)
	rootCmd.Flags().String("template", "", "Path to a custom Go template for conversation documents")
	rootCmd.Flags().Bool("front-matter", false, "Prepend a metadata block to Markdown documents")
	rootCmd.Flags().String("front-matter-format", weaver.DefaultFrontMatterFormat, `Front matter format ("yaml" or "toml")`)
	rootCmd.Flags().Bool("copy-attachments", weaver.DefaultCopyAttachments, "Copy resolved attachments into the output tree")

	// Identity & aliasing flags
	rootCmd.Flags().String("self-name", weaver.DefaultSelfName, "Display name for the exporting party")
	rootCmd.Flags().String("contacts", "", "Path to a contacts file (YAML or JSON) mapping numbers to names")
	rootCmd.Flags().String("alias-command", "", "External lookup command for unknown numbers (JSON over stdio)")
	rootCmd.Flags().String("alias-timeout", weaver.DefaultAliasTimeoutString, "Timeout for one alias command invocation (e.g. '5s')")

	// Input layout flags
	rootCmd.Flags().String("pool-subdir", weaver.DefaultPoolSubdir, "Archive subdirectory holding fragments and the attachment pool")
	rootCmd.Flags().String("default-encoding", weaver.DefaultEncoding, "Fallback text encoding when detection is uncertain (e.g. 'windows-1252')")

	// Workflow flags
	rootCmd.Flags().Bool("watch", false, "Watch the archive and re-run on changes")
	rootCmd.Flags().String("watch-debounce", weaver.DefaultWatchDebounceString, "Watch debounce duration string (e.g. '300ms', '1s')")
}
