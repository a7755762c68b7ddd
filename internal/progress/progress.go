// Package progress durably snapshots a partially translated catalog so an
// interrupted run loses at most the work since the last save.
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BemoBit/po-translator/internal/pofile"
	"github.com/BemoBit/po-translator/pkg/file"
	"github.com/BemoBit/po-translator/pkg/log"
)

// SavePolicy decides when a periodic snapshot is due.
type SavePolicy struct {
	// Interval is the number of completed translations between snapshots.
	Interval int
}

// DefaultSaveInterval matches the historical default of saving every 50
// translations.
const DefaultSaveInterval = 50

// WriteError reports that every write strategy failed. The temporary file
// named in TempPath still holds the full snapshot for manual recovery.
type WriteError struct {
	TempPath string
	Cause    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("saving progress failed, snapshot preserved at %s: %v", e.TempPath, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

// Manager writes crash-safe snapshots of a catalog to the output path.
// Completion counting is safe for concurrent use; saving itself must happen
// on the orchestrating goroutine.
type Manager struct {
	outputPath string
	policy     SavePolicy

	mu      sync.Mutex
	pending int
}

func NewManager(outputPath string, policy SavePolicy) *Manager {
	if policy.Interval <= 0 {
		policy.Interval = DefaultSaveInterval
	}
	return &Manager{
		outputPath: outputPath,
		policy:     policy,
	}
}

// Record adds n completed translations to the checkpoint counter.
func (m *Manager) Record(n int) {
	m.mu.Lock()
	m.pending += n
	m.mu.Unlock()
}

// Pending returns the completions counted since the last save.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// MaybeSave snapshots the catalog if the checkpoint counter has crossed the
// policy interval, and reports whether a save happened.
func (m *Manager) MaybeSave(doc *pofile.Document) (bool, error) {
	m.mu.Lock()
	due := m.pending >= m.policy.Interval
	m.mu.Unlock()

	if !due {
		return false, nil
	}
	if err := m.save(doc); err != nil {
		return false, err
	}
	return true, nil
}

// ForceSave snapshots unconditionally. Used on completion, fatal error, and
// interrupt.
func (m *Manager) ForceSave(doc *pofile.Document) error {
	return m.save(doc)
}

// save runs the full protocol: write a temp file, back up any existing
// output, then atomically move the temp file into place. A failed rename
// degrades to copy-then-delete; if that fails too the temp file is kept.
func (m *Manager) save(doc *pofile.Document) error {
	tempPath := m.outputPath + ".tmp"

	if err := doc.WriteFile(tempPath); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	if _, err := os.Stat(m.outputPath); err == nil {
		backupPath := m.backupPath()
		if err := copyFile(m.outputPath, backupPath); err != nil {
			log.Warn("Could not back up %s: %v", m.outputPath, err)
		}
	}

	if err := os.Rename(tempPath, m.outputPath); err != nil {
		// Cross-device or permission trouble: fall back to copying.
		if copyErr := copyFile(tempPath, m.outputPath); copyErr != nil {
			return &WriteError{TempPath: tempPath, Cause: copyErr}
		}
		_ = os.Remove(tempPath)
	}

	m.mu.Lock()
	m.pending = 0
	m.mu.Unlock()
	return nil
}

// backupPath builds a timestamped sibling of the output path, e.g.
// messages.fa.po → messages.fa_backup_20240131_120000.po.
func (m *Manager) backupPath() string {
	timestamp := time.Now().Format("20060102_150405")
	return file.InsertBeforeExt(m.outputPath, "_backup_"+timestamp)
}

// PruneBackups removes all but the most recent backup of the output file.
// Called after a successful run; errors only degrade to warnings.
func (m *Manager) PruneBackups() {
	dir := filepath.Dir(m.outputPath)
	ext := filepath.Ext(m.outputPath)
	base := strings.TrimSuffix(filepath.Base(m.outputPath), ext)
	prefix := base + "_backup_"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ext) {
			backups = append(backups, name)
		}
	}
	if len(backups) <= 1 {
		return
	}

	// Timestamps sort lexically, newest last.
	sort.Strings(backups)
	for _, name := range backups[:len(backups)-1] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			log.Warn("Could not remove old backup %s: %v", name, err)
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
