package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BemoBit/po-translator/internal/cache"
	"github.com/BemoBit/po-translator/internal/config"
	"github.com/BemoBit/po-translator/internal/pofile"
	"github.com/BemoBit/po-translator/internal/translator"
)

type fakeTranslator struct {
	calls atomic.Int64
	fail  func(text string) error
}

func (f *fakeTranslator) Name() string { return "fake" }

func (f *fakeTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	f.calls.Add(1)
	if f.fail != nil {
		if err := f.fail(text); err != nil {
			return "", err
		}
	}
	return "T:" + text, nil
}

const inputCatalog = `msgid ""
msgstr ""
"Content-Type: text/plain; charset=UTF-8\n"
"Language: en\n"

msgid "Open file"
msgstr ""

msgid "Save file"
msgstr ""

msgid "Close"
msgstr "bastan"
`

func writeInput(t *testing.T, content string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "messages.po")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return dir, path
}

func testConfig(t *testing.T, inputPath string) *config.Config {
	t.Helper()
	cfg := config.NewFromEnv()
	cfg.NoCache = true
	cfg.RequestDelayMs = 0
	cfg.Finalize(inputPath)
	return cfg
}

func TestRun_TranslatesAndWritesOutput(t *testing.T) {
	dir, input := writeInput(t, inputCatalog)
	cfg := testConfig(t, input)

	tr := &fakeTranslator{}
	ctrl := NewWithBackend(cfg, tr, nil)

	summary, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, ctrl.State())

	assert.Equal(t, "en", summary.SourceLang)
	assert.Equal(t, "fa", summary.TargetLang)
	assert.Equal(t, 2, summary.Counters.Translated)
	assert.Equal(t, 1, summary.Counters.Skipped)
	assert.False(t, summary.Interrupted)

	out, err := pofile.ParseFile(filepath.Join(dir, "messages.fa.po"))
	require.NoError(t, err)
	assert.Equal(t, "T:Open file", out.Entries[0].MsgStr)
	assert.Equal(t, "T:Save file", out.Entries[1].MsgStr)
	assert.Equal(t, "bastan", out.Entries[2].MsgStr)
	assert.Equal(t, "fa", out.HeaderField("Language"))
}

func TestRun_SecondRunWithWarmCacheMakesNoCalls(t *testing.T) {
	_, input := writeInput(t, inputCatalog)
	cfg := testConfig(t, input)

	dbPath := filepath.Join(filepath.Dir(input), "cache.db")

	tr := &fakeTranslator{}
	_, err := NewWithBackend(cfg, tr, cache.Open(dbPath)).Run(context.Background())
	require.NoError(t, err)
	require.Positive(t, tr.calls.Load())

	// Same input, same store: everything must come from the cache.
	tr2 := &fakeTranslator{}
	summary, err := NewWithBackend(cfg, tr2, cache.Open(dbPath)).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, tr2.calls.Load())
	assert.Equal(t, 2, summary.Counters.Cached)
}

func TestRun_MissingInputIsFatalLoadError(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing.po"))
	ctrl := NewWithBackend(cfg, &fakeTranslator{}, nil)

	_, err := ctrl.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, StateFailed, ctrl.State())

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, ErrLoad, runErr.Type)
}

func TestRun_UndetectableLanguageIsFatal(t *testing.T) {
	_, input := writeInput(t, `msgid ""
msgstr ""
"Content-Type: text/plain; charset=UTF-8\n"

msgid "ok"
msgstr ""
`)
	cfg := testConfig(t, input)
	ctrl := NewWithBackend(cfg, &fakeTranslator{}, nil)

	_, err := ctrl.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsFatal(err))

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, ErrAmbiguousLanguage, runErr.Type)
}

func TestRun_ExplicitSourceSkipsDetection(t *testing.T) {
	_, input := writeInput(t, `msgid ""
msgstr ""

msgid "ok"
msgstr ""
`)
	cfg := testConfig(t, input)
	cfg.SourceLang = "en"

	summary, err := NewWithBackend(cfg, &fakeTranslator{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "en", summary.SourceLang)
	assert.Equal(t, 1, summary.Counters.Translated)
}

func TestRun_IgnoreExistingRedoesTranslations(t *testing.T) {
	dir, input := writeInput(t, inputCatalog)
	cfg := testConfig(t, input)
	cfg.IgnoreExisting = true

	summary, err := NewWithBackend(cfg, &fakeTranslator{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Counters.Translated)

	out, err := pofile.ParseFile(filepath.Join(dir, "messages.fa.po"))
	require.NoError(t, err)
	assert.Equal(t, "T:Close", out.Entries[2].MsgStr)
}

func TestRun_PermanentFailureDegradesToSummary(t *testing.T) {
	_, input := writeInput(t, inputCatalog)
	cfg := testConfig(t, input)

	tr := &fakeTranslator{fail: func(text string) error {
		if text == "Save file" {
			return &translator.ServiceError{Service: "fake", Kind: translator.KindPermanent, Status: 400, Message: "no"}
		}
		return nil
	}}

	summary, err := NewWithBackend(cfg, tr, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Counters.Translated)
	assert.Equal(t, 1, summary.Counters.Failed)

	out, err := pofile.ParseFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Empty(t, out.Entries[1].MsgStr)
}

func TestRun_CanceledContextSavesAndReportsInterrupt(t *testing.T) {
	_, input := writeInput(t, inputCatalog)
	cfg := testConfig(t, input)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := NewWithBackend(cfg, &fakeTranslator{}, nil).Run(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.FileExists(t, cfg.OutputPath)
}

func TestRun_ResumeAfterInterruptPreservesSavedWork(t *testing.T) {
	const catalog = `msgid ""
msgstr ""
"Content-Type: text/plain; charset=UTF-8\n"
"Language: en\n"

msgid "alpha"
msgstr ""

msgid "bravo"
msgstr ""

msgid "charlie"
msgstr ""

msgid "delta"
msgstr ""
`
	dir, input := writeInput(t, catalog)
	cfg := testConfig(t, input)
	cfg.SourceLang = "en"
	cfg.BatchSize = 2

	// Interrupt once the first batch is in flight; its two entries still
	// complete and get saved, the second batch is never dispatched.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var n atomic.Int64
	tr := &fakeTranslator{fail: func(string) error {
		if n.Add(1) == 2 {
			cancel()
		}
		return nil
	}}

	summary, err := NewWithBackend(cfg, tr, nil).Run(ctx)
	require.NoError(t, err)
	require.True(t, summary.Interrupted)
	require.Equal(t, 2, summary.Counters.Translated)

	saved, err := pofile.ParseFile(cfg.OutputPath)
	require.NoError(t, err)
	require.Len(t, saved.Entries, 4)
	require.Equal(t, "T:alpha", saved.Entries[0].MsgStr)
	require.Equal(t, "T:bravo", saved.Entries[1].MsgStr)
	require.Empty(t, saved.Entries[2].MsgStr)

	// Rerun with the interrupted output as input: the saved translations
	// survive untouched and only the remaining entries hit the service.
	cfg2 := testConfig(t, cfg.OutputPath)
	cfg2.SourceLang = "en"
	cfg2.OutputPath = filepath.Join(dir, "resumed.po")

	tr2 := &fakeTranslator{}
	summary2, err := NewWithBackend(cfg2, tr2, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), tr2.calls.Load())
	assert.Equal(t, 2, summary2.Counters.Translated)
	assert.Equal(t, 2, summary2.Counters.Skipped)

	resumed, err := pofile.ParseFile(cfg2.OutputPath)
	require.NoError(t, err)
	require.Len(t, resumed.Entries, 4)
	for i, msgid := range []string{"alpha", "bravo", "charlie", "delta"} {
		assert.Equal(t, msgid, resumed.Entries[i].MsgID)
		assert.Equal(t, "T:"+msgid, resumed.Entries[i].MsgStr)
	}
}

func TestRun_FinalSaveFailureEndsInFailedState(t *testing.T) {
	_, input := writeInput(t, inputCatalog)
	cfg := testConfig(t, input)
	cfg.OutputPath = filepath.Join(t.TempDir(), "missing-dir", "out.po")

	ctrl := NewWithBackend(cfg, &fakeTranslator{}, nil)
	summary, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.SaveFailed)
	assert.Equal(t, StateFailed, ctrl.State())
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewError(ErrLoad, "x")))
	assert.True(t, IsFatal(NewError(ErrAmbiguousLanguage, "x")))
	assert.True(t, IsFatal(NewError(ErrConfig, "x")))
	assert.False(t, IsFatal(NewError(ErrPersistence, "x")))
	assert.False(t, IsFatal(assert.AnError))
}

func TestRunError_Format(t *testing.T) {
	err := NewErrorWithCause(ErrLoad, "loading catalog", os.ErrNotExist).
		WithContext("path", "x.po")
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "[LOAD] loading catalog"))
	assert.Contains(t, msg, "path=x.po")
	assert.Contains(t, msg, "cause:")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
