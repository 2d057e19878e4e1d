// Package assets embeds the default word lists shipped with the server and
// the line format shared by every word file: one word per line, blank lines
// and "#" comments ignored.
package assets

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"strings"
)

const (
	answersFile = "answers.txt"
	allowedFile = "allowed.txt"
)

//go:embed allowed.txt answers.txt
var files embed.FS

// ScanWords reads a word file, trimming each line and skipping comments.
// Case and shape are left to the caller.
func ScanWords(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		words = append(words, line)
	}
	return words, sc.Err()
}

func embedded(name string) ([]string, error) {
	f, err := files.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	words, err := ScanWords(f)
	if err != nil {
		return nil, fmt.Errorf("assets: %s: %w", name, err)
	}
	return words, nil
}

// AnswersList returns the embedded answer words.
func AnswersList() ([]string, error) { return embedded(answersFile) }

// AllowedList returns the embedded extra guess words.
func AllowedList() ([]string, error) { return embedded(allowedFile) }
