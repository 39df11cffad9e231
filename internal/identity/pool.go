package identity

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ErrEmptyPool is returned when a name has to be drawn from a pool with no entries.
var ErrEmptyPool = errors.New("name pool is empty")

// Pool is an ordered, read-only list of names.
type Pool []string

// LoadPool reads one name per line from path. Surrounding whitespace is
// trimmed and blank lines are skipped. A missing file is returned as an
// error wrapping os.ErrNotExist.
func LoadPool(path string) (Pool, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding name file path %q: %w", path, err)
	}

	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("opening name file: %w", err)
	}
	defer f.Close()

	var pool Pool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		pool = append(pool, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading name file %s: %w", expanded, err)
	}
	return pool, nil
}
