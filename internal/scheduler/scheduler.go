// Package scheduler drives batched, concurrent translation of catalog
// entries: cache lookups first, then bounded parallel service calls with
// per-entry retries, with a checkpoint signal after every batch.
package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BemoBit/po-translator/internal/cache"
	"github.com/BemoBit/po-translator/internal/pofile"
	"github.com/BemoBit/po-translator/internal/translator"
	"github.com/BemoBit/po-translator/pkg/log"
)

const (
	defaultBatchSize   = 10
	defaultWorkers     = 4
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
)

// Options tune batching, concurrency and retry behavior.
type Options struct {
	// BatchSize is the number of entries handled between checkpoint signals.
	BatchSize int
	// Workers bounds concurrent in-flight translation requests.
	Workers int
	// MaxAttempts bounds tries per string for transient service errors.
	MaxAttempts int
	// RetryDelay is the base backoff; attempt n waits n*RetryDelay.
	RetryDelay time.Duration
	// RequestDelay is a politeness pause after every network call.
	RequestDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	return o
}

// Counters summarize a run. Each catalog entry lands in exactly one bucket.
type Counters struct {
	Translated int
	Cached     int
	Failed     int
	Skipped    int
}

// CheckpointFunc runs on the orchestrating goroutine after each batch with
// the number of successful service translations in that batch. The catalog
// is quiescent for the duration of the call.
type CheckpointFunc func(completed int)

// unit is one translatable slot: the singular msgstr or one plural form.
type unit struct {
	source string
	// pluralForm is -1 for the singular slot.
	pluralForm int
}

// task is one entry plus its pending units. All units of an entry run on a
// single worker so entry mutation needs no locking.
type task struct {
	entry *pofile.Entry
	units []unit
}

type outcome struct {
	translated int // units filled via the service
	cached     int // units filled from the cache
	failed     int // units permanently failed
}

// Scheduler is safe for a single Run at a time.
type Scheduler struct {
	tr    translator.Translator
	store cache.Store
	opts  Options
}

func New(tr translator.Translator, store cache.Store, opts Options) *Scheduler {
	return &Scheduler{tr: tr, store: store, opts: opts.withDefaults()}
}

// Run translates every pending entry of doc in place. Entry order in the
// catalog is never changed. A canceled context stops dispatching further
// batches and returns ctx.Err(); work already applied stays applied.
func (s *Scheduler) Run(ctx context.Context, doc *pofile.Document, sourceLang, targetLang string, checkpoint CheckpointFunc) (Counters, error) {
	var counters Counters

	tasks := s.collect(doc, &counters)
	if len(tasks) == 0 {
		return counters, nil
	}

	done := 0
	for start := 0; start < len(tasks); start += s.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return counters, err
		}

		end := start + s.opts.BatchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		batch := tasks[start:end]

		completed := s.runBatch(ctx, batch, sourceLang, targetLang, &counters)
		done += len(batch)
		log.Info("Progress: %d/%d entries", done, len(tasks))

		if checkpoint != nil {
			checkpoint(completed)
		}
	}

	return counters, ctx.Err()
}

// collect walks the catalog in order and builds one task per entry that
// still has empty translation slots. Obsolete entries and entries that are
// already translated are counted as skipped.
func (s *Scheduler) collect(doc *pofile.Document, counters *Counters) []*task {
	nplurals := doc.Nplurals()

	var tasks []*task
	for _, entry := range doc.Entries {
		if entry.Obsolete {
			counters.Skipped++
			continue
		}

		units := pendingUnits(entry, nplurals)
		if len(units) == 0 {
			counters.Skipped++
			continue
		}
		tasks = append(tasks, &task{entry: entry, units: units})
	}
	return tasks
}

func pendingUnits(entry *pofile.Entry, nplurals int) []unit {
	if entry.MsgIDPlural == "" {
		if entry.MsgID == "" || entry.MsgStr != "" {
			return nil
		}
		return []unit{{source: entry.MsgID, pluralForm: -1}}
	}

	var units []unit
	for form := 0; form < nplurals; form++ {
		if entry.MsgStrPlural[form] != "" {
			continue
		}
		// Form 0 translates the singular; the rest translate the plural.
		source := entry.MsgID
		if form > 0 {
			source = entry.MsgIDPlural
		}
		units = append(units, unit{source: source, pluralForm: form})
	}
	return units
}

// runBatch translates one batch with at most opts.Workers concurrent
// requests and folds the per-entry outcomes into counters. Returns the
// number of successful service translations for the checkpoint counter.
func (s *Scheduler) runBatch(ctx context.Context, batch []*task, sourceLang, targetLang string, counters *Counters) int {
	outcomes := make([]outcome, len(batch))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.opts.Workers)
	for i, t := range batch {
		i, t := i, t
		group.Go(func() error {
			outcomes[i] = s.runTask(groupCtx, t, sourceLang, targetLang)
			return nil
		})
	}
	// Workers never return errors; failed entries become counter entries.
	_ = group.Wait()

	completed := 0
	interrupted := ctx.Err() != nil
	for _, o := range outcomes {
		completed += o.translated
		switch {
		case o.failed > 0:
			counters.Failed++
		case o.translated > 0:
			counters.Translated++
		case o.cached > 0:
			counters.Cached++
		case interrupted:
			// Entry never got a chance; leave it out of the summary.
		default:
			counters.Skipped++
		}
	}
	return completed
}

// runTask fills every pending unit of one entry: cache first, then the
// service with retries for transient errors. A permanent failure leaves
// that slot empty and moves on.
func (s *Scheduler) runTask(ctx context.Context, t *task, sourceLang, targetLang string) outcome {
	var o outcome
	for _, u := range t.units {
		key := cache.Key{
			Service:    s.tr.Name(),
			SourceLang: sourceLang,
			TargetLang: targetLang,
			Text:       u.source,
		}

		if text, ok := s.store.Get(ctx, key); ok {
			apply(t.entry, u, text)
			o.cached++
			continue
		}

		text, err := s.translateWithRetry(ctx, u.source, sourceLang, targetLang)
		if err != nil {
			// Canceled mid-flight means not attempted, not failed.
			if ctx.Err() != nil {
				break
			}
			log.Warn("Giving up on %q: %v", truncate(u.source, 40), err)
			o.failed++
			continue
		}

		apply(t.entry, u, text)
		s.store.Put(ctx, key, text)
		o.translated++
	}
	return o
}

func (s *Scheduler) translateWithRetry(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, time.Duration(attempt-1)*s.opts.RetryDelay); err != nil {
				return "", err
			}
		}

		result, err := s.tr.Translate(ctx, text, sourceLang, targetLang)
		if s.opts.RequestDelay > 0 {
			_ = sleep(ctx, s.opts.RequestDelay)
		}
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !translator.IsTransient(err) {
			return "", err
		}
		log.Debug("Transient failure (attempt %d/%d): %v", attempt, s.opts.MaxAttempts, err)
	}
	return "", lastErr
}

func apply(entry *pofile.Entry, u unit, text string) {
	if u.pluralForm < 0 {
		entry.MsgStr = text
		return
	}
	if entry.MsgStrPlural == nil {
		entry.MsgStrPlural = make(map[int]string)
	}
	entry.MsgStrPlural[u.pluralForm] = text
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
