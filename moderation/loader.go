package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"github.com/samber/lo"

	"chat-core/errors"
)

//go:embed blocked/*
var blockedFolder embed.FS

// BlocklistData carries the result of the loading process including metadata
// for logging.
type BlocklistData struct {
	Words     []string
	Languages []string
}

// Loader reads blocklisted words from embedded files, one dictionary per
// language.
type Loader struct {
	fs embed.FS
}

func NewLoader(f embed.FS) *Loader {
	return &Loader{fs: f}
}

// DefaultLoader reads the blocklists shipped with the package.
func DefaultLoader() *Loader {
	return NewLoader(blockedFolder)
}

// LoadAll scans the given directory in the embedded FS, identifying .txt
// files as language dictionaries and parsing their contents into a unique
// list of words.
func (l *Loader) LoadAll(path string) (*BlocklistData, error) {
	entries, err := fs.ReadDir(l.fs, path)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// Track the language based on the filename (e.g., "fr.txt" -> "fr")
		lang := strings.TrimSuffix(entry.Name(), ".txt")
		languages = append(languages, lang)

		data, err := l.fs.ReadFile(path + "/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}

		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}
	return &BlocklistData{Words: lo.Keys(uniqueWords), Languages: languages}, nil
}
