// Package cache persists translations so repeat runs avoid repeat network
// calls. One store file exists per (input file, target language) pair.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BemoBit/po-translator/pkg/file"
)

// Key identifies one cached translation. Records are immutable: once a key
// is written its value is authoritative for the rest of the store's life.
type Key struct {
	Service    string
	SourceLang string
	TargetLang string
	Text       string
}

// hash produces the stable primary key for storage. The text is normalized
// so incidental whitespace differences share a record.
func (k Key) hash() string {
	h := sha256.New()
	h.Write([]byte(k.Service))
	h.Write([]byte{0})
	h.Write([]byte(k.SourceLang))
	h.Write([]byte{0})
	h.Write([]byte(k.TargetLang))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(k.Text)))
	return hex.EncodeToString(h.Sum(nil))
}

// Store is the translation cache contract. Lookups never fail: internal
// storage errors degrade to misses so a broken cache cannot break a run.
type Store interface {
	Get(ctx context.Context, key Key) (string, bool)
	Put(ctx context.Context, key Key, translated string)
	Close() error
}

// FilePath derives the cache file location for an input file and target
// language. The input's absolute path is hashed so identically named files
// in different directories get distinct stores.
func FilePath(cacheDir, inputPath, targetLang string) string {
	abs, err := filepath.Abs(inputPath)
	if err != nil {
		abs = inputPath
	}
	sum := sha256.Sum256([]byte(abs))
	base := file.ReplaceExt(filepath.Base(inputPath), "")
	return filepath.Join(cacheDir, fmt.Sprintf("%s-%s.%s.db", base, hex.EncodeToString(sum[:6]), targetLang))
}

// NoopStore is the disabled cache: every Get misses and Put does nothing,
// so callers need no branching when caching is turned off.
type NoopStore struct{}

func NewNoop() *NoopStore {
	return &NoopStore{}
}

func (*NoopStore) Get(context.Context, Key) (string, bool) { return "", false }

func (*NoopStore) Put(context.Context, Key, string) {}

func (*NoopStore) Close() error { return nil }
