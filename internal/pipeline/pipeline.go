// Package pipeline orchestrates a full translation run: load the catalog,
// resolve the source language, translate in batches with periodic snapshots,
// and write the final output.
package pipeline

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/BemoBit/po-translator/internal/cache"
	"github.com/BemoBit/po-translator/internal/config"
	"github.com/BemoBit/po-translator/internal/langdetect"
	"github.com/BemoBit/po-translator/internal/pofile"
	"github.com/BemoBit/po-translator/internal/progress"
	"github.com/BemoBit/po-translator/internal/scheduler"
	"github.com/BemoBit/po-translator/internal/translator"
	"github.com/BemoBit/po-translator/pkg/log"
)

// State tracks where a run is in its lifecycle.
type State int

const (
	StateInit State = iota
	StateLanguageResolved
	StateTranslating
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateLanguageResolved:
		return "language_resolved"
	case StateTranslating:
		return "translating"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Summary is what a finished (or interrupted) run reports.
type Summary struct {
	Counters    scheduler.Counters
	SourceLang  string
	TargetLang  string
	OutputPath  string
	Interrupted bool
	SaveFailed  bool
}

// Controller runs the pipeline once. Not safe for concurrent runs.
type Controller struct {
	cfg   *config.Config
	tr    translator.Translator
	store cache.Store
	state State
}

// New wires a Controller from configuration: translation backend plus the
// cache store for this (input, target) pair.
func New(cfg *config.Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, NewErrorWithCause(ErrConfig, "invalid configuration", err)
	}

	tr, err := translator.New(translator.Config{
		Service:           cfg.Service,
		LibreTranslateURL: cfg.LibreTranslateURL,
		MyMemoryEmail:     cfg.MyMemoryEmail,
	})
	if err != nil {
		return nil, NewErrorWithCause(ErrConfig, "building translation client", err)
	}

	return NewWithBackend(cfg, tr, openStore(cfg)), nil
}

// NewWithBackend wires a Controller around explicit collaborators.
func NewWithBackend(cfg *config.Config, tr translator.Translator, store cache.Store) *Controller {
	if store == nil {
		store = cache.NewNoop()
	}
	return &Controller{cfg: cfg, tr: tr, store: store}
}

func openStore(cfg *config.Config) cache.Store {
	if cfg.NoCache {
		return cache.NewNoop()
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		log.Warn("Could not create cache directory %s: %v", cfg.CacheDir, err)
		return cache.NewNoop()
	}
	return cache.Open(cache.FilePath(cfg.CacheDir, cfg.InputPath, cfg.TargetLang))
}

func (c *Controller) State() State {
	return c.state
}

// Run executes the pipeline. A canceled context is treated as an interrupt:
// progress so far is saved and the summary is returned with Interrupted set.
// The returned error is non-nil only for fatal failures.
func (c *Controller) Run(ctx context.Context) (*Summary, error) {
	defer func() {
		if err := c.store.Close(); err != nil {
			log.Warn("Closing cache store: %v", err)
		}
	}()

	c.state = StateInit
	doc, err := pofile.ParseFile(c.cfg.InputPath)
	if err != nil {
		c.state = StateFailed
		return nil, NewErrorWithCause(ErrLoad, "loading catalog", err).
			WithContext("path", c.cfg.InputPath)
	}

	sourceLang := c.cfg.SourceLang
	if sourceLang == "" {
		sourceLang = langdetect.FromDocument(doc)
	}
	if sourceLang == "" {
		c.state = StateFailed
		return nil, NewError(ErrAmbiguousLanguage,
			"source language not given and not detectable; pass --source").
			WithContext("path", c.cfg.InputPath)
	}
	c.state = StateLanguageResolved
	log.Info("Translating %s → %s (%s)", sourceLang, c.cfg.TargetLang, c.tr.Name())

	if c.cfg.IgnoreExisting {
		cleared := clearTranslations(doc)
		log.Info("Dropped %d existing translations", cleared)
	}
	doc.SetHeaderField("Language", c.cfg.TargetLang)

	total, translated, _ := doc.Stats()
	log.Info("Catalog: %d entries, %d already translated", total, translated)

	mgr := progress.NewManager(c.cfg.OutputPath, progress.SavePolicy{Interval: c.cfg.SaveInterval})
	sched := scheduler.New(c.tr, c.store, scheduler.Options{
		BatchSize:    c.cfg.BatchSize,
		Workers:      c.cfg.Workers,
		MaxAttempts:  c.cfg.MaxAttempts,
		RequestDelay: time.Duration(c.cfg.RequestDelayMs) * time.Millisecond,
	})

	c.state = StateTranslating
	counters, runErr := sched.Run(ctx, doc, sourceLang, c.cfg.TargetLang, func(completed int) {
		mgr.Record(completed)
		if _, err := mgr.MaybeSave(doc); err != nil {
			log.Warn("Checkpoint save failed: %v", err)
		}
	})

	c.state = StateFinalizing
	summary := &Summary{
		Counters:    counters,
		SourceLang:  sourceLang,
		TargetLang:  c.cfg.TargetLang,
		OutputPath:  c.cfg.OutputPath,
		Interrupted: errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded),
	}

	if err := mgr.ForceSave(doc); err != nil {
		summary.SaveFailed = true
		log.Error("%v", NewErrorWithCause(ErrPersistence, "final save failed", err))
	} else if !summary.Interrupted {
		mgr.PruneBackups()
	}

	// Done means the output is durably on disk.
	if summary.SaveFailed {
		c.state = StateFailed
	} else {
		c.state = StateDone
	}
	return summary, nil
}

// clearTranslations empties every live entry so the run redoes them.
func clearTranslations(doc *pofile.Document) int {
	cleared := 0
	for _, entry := range doc.Entries {
		if entry.Obsolete || !entry.IsTranslated() {
			continue
		}
		entry.MsgStr = ""
		entry.MsgStrPlural = nil
		cleared++
	}
	return cleared
}
