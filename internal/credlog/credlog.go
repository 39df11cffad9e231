// internal/credlog/credlog.go
package credlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/formpilot/internal/identity"
)

// TimestampLayout is the layout of the leading timestamp on every line.
const TimestampLayout = "2006-01-02 15:04:05"

// Entry is one line of the credentials log.
type Entry struct {
	Timestamp time.Time
	Identity  identity.Identity
}

// Format renders the entry as a single log line without the trailing newline.
func (e Entry) Format() string {
	return fmt.Sprintf("%s - Name: %s %s, Username: %s, Password: %s",
		e.Timestamp.Format(TimestampLayout),
		e.Identity.FirstName, e.Identity.LastName,
		e.Identity.Username, e.Identity.Password)
}

// Writer appends entries to a file. It never rewrites or truncates it.
type Writer struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewWriter creates a writer for path. A leading ~ is expanded.
func NewWriter(path string) (*Writer, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding credentials path %q: %w", path, err)
	}
	return &Writer{path: expanded, now: time.Now}, nil
}

// Path returns the resolved file path.
func (w *Writer) Path() string { return w.path }

// Append writes one line for id stamped with the current time.
func (w *Writer) Append(id identity.Identity) (Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry := Entry{Timestamp: w.now(), Identity: id}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return entry, fmt.Errorf("creating credentials directory: %w", err)
		}
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return entry, fmt.Errorf("opening credentials log: %w", err)
	}
	if _, err := fmt.Fprintln(f, entry.Format()); err != nil {
		f.Close()
		return entry, fmt.Errorf("writing credentials log: %w", err)
	}
	if err := f.Close(); err != nil {
		return entry, fmt.Errorf("closing credentials log: %w", err)
	}
	return entry, nil
}
