// Package lexicon rewrites variation text before speech synthesis so the
// persona voices pronounce names and jargon the way the user wants.
package lexicon

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultPassLimit = 30

// Entry is one pronunciation override as written in the lexicon file.
// Exactly one of Match or Pattern must be set.
type Entry struct {
	Match         string `yaml:"match"`
	Pattern       string `yaml:"pattern"`
	Say           string `yaml:"say"`
	CaseSensitive bool   `yaml:"case_sensitive"`
	// Once replaces only the leftmost occurrence per pass.
	Once bool `yaml:"once"`
}

type file struct {
	Entries []Entry `yaml:"entries"`
}

type compiledEntry struct {
	re   *regexp.Regexp
	say  string
	once bool
}

func (e compiledEntry) apply(input string) (string, bool) {
	if !e.once {
		output := e.re.ReplaceAllString(input, e.say)
		return output, output != input
	}

	loc := e.re.FindStringSubmatchIndex(input)
	if loc == nil {
		return input, false
	}
	expanded := e.re.ExpandString(nil, e.say, input, loc)
	output := input[:loc[0]] + string(expanded) + input[loc[1]:]
	return output, output != input
}

// Lexicon applies pronunciation overrides until the text is stable.
type Lexicon struct {
	entries   []compiledEntry
	passLimit int
}

// Load reads a YAML lexicon. An empty path or a missing file yields an empty lexicon.
func Load(path string, passLimit int) (*Lexicon, error) {
	if passLimit <= 0 {
		passLimit = defaultPassLimit
	}
	if strings.TrimSpace(path) == "" {
		return &Lexicon{passLimit: passLimit}, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Lexicon{passLimit: passLimit}, nil
		}
		return nil, fmt.Errorf("failed to read lexicon file %q: %w", path, err)
	}

	lex, err := Parse(contents, passLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lexicon file %q: %w", path, err)
	}
	return lex, nil
}

// Parse compiles lexicon entries from YAML.
func Parse(contents []byte, passLimit int) (*Lexicon, error) {
	if passLimit <= 0 {
		passLimit = defaultPassLimit
	}

	var doc file
	if err := yaml.Unmarshal(contents, &doc); err != nil {
		return nil, err
	}

	entries := make([]compiledEntry, 0, len(doc.Entries))
	for index, entry := range doc.Entries {
		compiled, err := compile(entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", index+1, err)
		}
		entries = append(entries, compiled)
	}
	return &Lexicon{entries: entries, passLimit: passLimit}, nil
}

func compile(entry Entry) (compiledEntry, error) {
	match := strings.TrimSpace(entry.Match)
	pattern := entry.Pattern

	var expr string
	switch {
	case match != "" && pattern != "":
		return compiledEntry{}, errors.New("set either match or pattern, not both")
	case match != "":
		expr = regexp.QuoteMeta(match)
	case pattern != "":
		expr = pattern
	default:
		return compiledEntry{}, errors.New("match or pattern is required")
	}
	if !entry.CaseSensitive {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return compiledEntry{}, fmt.Errorf("invalid pattern: %w", err)
	}

	say := entry.Say
	if match != "" {
		// Literal entries replace verbatim; "$" in the spoken form is not a group reference.
		say = strings.ReplaceAll(say, "$", "$$")
	}
	return compiledEntry{re: re, say: say, once: entry.Once}, nil
}

// Len reports the number of entries.
func (l *Lexicon) Len() int {
	return len(l.entries)
}

// Apply rewrites text, repeating all entries until nothing changes or the pass limit is hit.
func (l *Lexicon) Apply(text string) string {
	if l == nil || len(l.entries) == 0 {
		return text
	}

	result := text
	for i := 0; i < l.passLimit; i++ {
		changed := false
		for _, entry := range l.entries {
			next, entryChanged := entry.apply(result)
			if entryChanged {
				result = next
				changed = true
			}
		}
		if !changed {
			return result
		}
	}
	return result
}
