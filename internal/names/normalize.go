// Package names rewrites name lists into the capitalization the identity
// pools expect: the first rune of each line upper-cased, the rest lower.
package names

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode"
	"unicode/utf8"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Line lower-cases s and then title-cases its first rune. Leading
// whitespace counts as the first rune, so " ada" is unchanged.
func Line(s string) string {
	lower := cases.Lower(language.Und).String(s)
	r, size := utf8.DecodeRuneInString(lower)
	if r == utf8.RuneError {
		return lower
	}
	return string(unicode.ToTitle(r)) + lower[size:]
}

// Normalize copies r to w line by line through Line. Line endings, including
// a missing final newline, are kept as they were. It returns the number of
// lines written.
func Normalize(r io.Reader, w io.Writer) (int, error) {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	lines := 0
	for {
		raw, err := br.ReadString('\n')
		if len(raw) > 0 {
			body, ending := splitEnding(raw)
			if _, werr := bw.WriteString(Line(body) + ending); werr != nil {
				return lines, werr
			}
			lines++
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return lines, err
		}
	}
	return lines, bw.Flush()
}

func splitEnding(line string) (body, ending string) {
	switch {
	case len(line) >= 2 && line[len(line)-2:] == "\r\n":
		return line[:len(line)-2], "\r\n"
	case len(line) >= 1 && line[len(line)-1] == '\n':
		return line[:len(line)-1], "\n"
	}
	return line, ""
}

// NormalizeFile normalizes in into out. The two may not be the same file.
func NormalizeFile(in, out string) (int, error) {
	inPath, err := homedir.Expand(in)
	if err != nil {
		return 0, err
	}
	outPath, err := homedir.Expand(out)
	if err != nil {
		return 0, err
	}

	src, err := os.Open(inPath)
	if err != nil {
		return 0, fmt.Errorf("opening name list: %w", err)
	}
	defer src.Close()

	if same, err := sameFile(src, outPath); err != nil {
		return 0, err
	} else if same {
		return 0, fmt.Errorf("input and output are the same file: %s", inPath)
	}

	dst, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("creating output list: %w", err)
	}
	n, err := Normalize(src, dst)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("normalizing %s: %w", inPath, err)
	}
	return n, nil
}

func sameFile(src *os.File, outPath string) (bool, error) {
	outInfo, err := os.Stat(outPath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	inInfo, err := src.Stat()
	if err != nil {
		return false, err
	}
	return os.SameFile(inInfo, outInfo), nil
}
