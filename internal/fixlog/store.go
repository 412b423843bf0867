// Package fixlog implements the per-workspace fix memory: an append-only,
// human-readable log of build failures and the fixes the agent applied.
// The log is never truncated; only the read path is bounded.
package fixlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/forgeloop-io/forgeloop/internal/config"
	"github.com/forgeloop-io/forgeloop/internal/models"
)

const entryTimeFormat = "2006-01-02 15:04"

// Store appends to and reads per-workspace fix logs. Writes to different
// workspaces never contend; writes within one workspace are ordered.
type Store struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex // workspace root -> append lock
}

// NewStore creates a fix log store.
func NewStore() *Store {
	return &Store{locks: make(map[string]*sync.Mutex)}
}

func (s *Store) rootLock(root string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[root]
	if !ok {
		l = &sync.Mutex{}
		s.locks[root] = l
	}
	return l
}

// Append writes one fix record to the workspace's log. Records are
// immutable once written.
func (s *Store) Append(root string, rec models.FixRecord) error {
	l := s.rootLock(root)
	l.Lock()
	defer l.Unlock()

	if err := config.EnsureWorkspaceDir(root); err != nil {
		return fmt.Errorf("failed to create workspace dir: %w", err)
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	entry := fmt.Sprintf("### [%s] %s\n**Error:** `%s`\n**Fix:** %s\n\n",
		ts.Format(entryTimeFormat),
		rec.Platform,
		strings.TrimSpace(rec.ErrorSig),
		strings.TrimSpace(rec.FixSummary),
	)

	f, err := os.OpenFile(config.FixLogFile(root), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open fix log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to append fix record: %w", err)
	}
	return nil
}

// Digest returns the most recent log content up to maxBytes, formatted for
// prompt injection. Older entries fall out of the view; the underlying log
// keeps them. Returns "" when the workspace has no fixes.
func (s *Store) Digest(root string, maxBytes int) (string, error) {
	data, err := os.ReadFile(config.FixLogFile(root))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", nil
	}
	if maxBytes > 0 && len(text) > maxBytes {
		text = text[len(text)-maxBytes:]
		// Drop the partial leading entry if a boundary survives the cut.
		if i := strings.Index(text, "### ["); i > 0 {
			text = text[i:]
		}
	}
	return text, nil
}

// Records parses the full log into structured records, oldest first.
func (s *Store) Records(root string) ([]models.FixRecord, error) {
	data, err := os.ReadFile(config.FixLogFile(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []models.FixRecord
	for _, chunk := range strings.Split(string(data), "### [") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		rec, ok := parseEntry(chunk)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseEntry parses one "ts] platform\n**Error:** `...`\n**Fix:** ..." chunk.
func parseEntry(chunk string) (models.FixRecord, bool) {
	var rec models.FixRecord

	end := strings.Index(chunk, "]")
	if end < 0 {
		return rec, false
	}
	ts, err := time.Parse(entryTimeFormat, chunk[:end])
	if err != nil {
		return rec, false
	}
	rec.Timestamp = ts

	rest := chunk[end+1:]
	lines := strings.SplitN(rest, "\n", 3)
	rec.Platform = strings.TrimSpace(lines[0])

	for _, line := range strings.Split(rest, "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "**Error:**"); ok {
			rec.ErrorSig = strings.Trim(strings.TrimSpace(after), "`")
		} else if after, ok := strings.CutPrefix(line, "**Fix:**"); ok {
			rec.FixSummary = strings.TrimSpace(after)
		}
	}
	return rec, true
}

// Clear empties the fix log for one workspace. Other workspaces are
// untouched. Clearing a workspace with no log is a no-op.
func (s *Store) Clear(root string) error {
	l := s.rootLock(root)
	l.Lock()
	defer l.Unlock()

	err := os.Remove(config.FixLogFile(root))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
