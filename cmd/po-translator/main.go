// po-translator — batch-translate untranslated gettext PO entries using a
// free online translation service, with caching and crash-safe progress.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/BemoBit/po-translator/internal/config"
	"github.com/BemoBit/po-translator/internal/langdetect"
	"github.com/BemoBit/po-translator/internal/pipeline"
	"github.com/BemoBit/po-translator/pkg/log"
)

// Version information (set via -ldflags during build)
var version = "dev"

func newRootCmd(cfg *config.Config) *cobra.Command {
	var listLanguages bool

	root := &cobra.Command{
		Use:   "po-translator [flags] INPUT.po",
		Short: "Batch-translate gettext PO files with free translation services",
		Long: `po-translator fills the untranslated entries of a gettext PO file using a
free online translation service (Google, LibreTranslate or MyMemory).

Translations are cached per input file and target language, progress is
saved periodically, and an interrupted run can simply be rerun: already
translated entries and cached strings are never requested again.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.InitLogger(log.ParseLevel(cfg.LogLevel))

			if listLanguages {
				printLanguages(cmd.OutOrStdout())
				return nil
			}
			if len(args) == 0 {
				return pipeline.NewError(pipeline.ErrConfig, "input PO file is required")
			}

			cfg.Finalize(args[0])
			return run(cmd.Context(), cfg)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&cfg.OutputPath, "output", "o", "", "output path (default INPUT.<target>.po)")
	flags.StringVarP(&cfg.Service, "service", "s", cfg.Service, "translation service: google|libretranslate|mymemory")
	flags.StringVar(&cfg.SourceLang, "source", cfg.SourceLang, "source language code (default: auto-detect)")
	flags.StringVarP(&cfg.TargetLang, "target", "t", cfg.TargetLang, "target language code")
	flags.StringVar(&cfg.LibreTranslateURL, "libretranslate-url", cfg.LibreTranslateURL, "LibreTranslate endpoint")
	flags.StringVar(&cfg.MyMemoryEmail, "email", cfg.MyMemoryEmail, "contact email for MyMemory (raises its quota)")
	flags.IntVarP(&cfg.BatchSize, "batch-size", "b", cfg.BatchSize, "entries per progress batch")
	flags.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "concurrent translation requests")
	flags.IntVar(&cfg.SaveInterval, "save-interval", cfg.SaveInterval, "save progress every N translations")
	flags.BoolVarP(&cfg.IgnoreExisting, "ignore-existing", "i", false, "drop existing translations and redo them")
	flags.BoolVar(&cfg.NoCache, "no-cache", false, "disable the translation cache")
	flags.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "translation cache directory")
	flags.BoolVar(&listLanguages, "list-languages", false, "print known language codes and exit")

	return root
}

func run(ctx context.Context, cfg *config.Config) error {
	ctrl, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	summary, err := ctrl.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func printSummary(s *pipeline.Summary) {
	fmt.Println()
	color.New(color.Bold).Printf("Translation summary (%s → %s)\n", s.SourceLang, s.TargetLang)
	color.Green("  translated: %d", s.Counters.Translated)
	color.Cyan("  from cache: %d", s.Counters.Cached)
	if s.Counters.Failed > 0 {
		color.Red("  failed:     %d", s.Counters.Failed)
	}
	fmt.Printf("  skipped:    %d\n", s.Counters.Skipped)

	if s.SaveFailed {
		color.Red("Output could not be written; see the log for the preserved snapshot path.")
		return
	}
	fmt.Printf("Output written to %s\n", s.OutputPath)
	if s.Interrupted {
		color.Yellow("Interrupted — progress saved. Rerun the same command to resume.")
	}
}

func printLanguages(w io.Writer) {
	for _, code := range langdetect.List() {
		fmt.Fprintf(w, "%-6s %s\n", code, langdetect.Name(code))
	}
}

func main() {
	// A local .env can hold PO_TRANSLATOR_* defaults.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.NewFromEnv()
	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		// An interrupt that reached here without a saved summary still
		// exits cleanly; fatal pipeline errors do not.
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		log.Error("%v", err)
		os.Exit(1)
	}
}
