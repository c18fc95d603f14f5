package services

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-tgstats/internal/config"
)

// Alphabet is the ordered list of probe keys used to enumerate a channel.
// The remote search matches a key against names and handles, so the keys
// must jointly cover every character a member's name can start with.
type Alphabet []string

// DefaultAlphabet returns the latin letters, digits, underscore and the
// Cyrillic alphabet.
func DefaultAlphabet() Alphabet {
	var keys []string
	for r := 'a'; r <= 'z'; r++ {
		keys = append(keys, string(r))
	}
	for r := '0'; r <= '9'; r++ {
		keys = append(keys, string(r))
	}
	keys = append(keys, "_")
	for r := 'а'; r <= 'я'; r++ {
		keys = append(keys, string(r))
	}
	keys = append(keys, "ё")
	return Alphabet(keys)
}

// NewAlphabet normalizes keys (trim, NFC, lower case) and validates the result.
func NewAlphabet(keys []string) (Alphabet, error) {
	out := make(Alphabet, 0, len(keys))
	for _, k := range keys {
		out = append(out, normalizeKey(k))
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeKey(k string) string {
	// Casers are stateful; one per call.
	return cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(k)))
}

// Validate rejects empty alphabets, empty keys and duplicates.
func (a Alphabet) Validate() error {
	if len(a) == 0 {
		return fmt.Errorf("%w: no probe keys", ErrInvalidAlphabet)
	}
	seen := make(map[string]struct{}, len(a))
	for i, k := range a {
		if k == "" {
			return fmt.Errorf("%w: key %d is empty", ErrInvalidAlphabet, i)
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidAlphabet, k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

type alphabetFile struct {
	ProbeKeys []string `yaml:"probe_keys"`
}

// LoadAlphabetFile reads probe keys from a YAML file of the form
//
//	probe_keys: [a, b, c]
func LoadAlphabetFile(path string) (Alphabet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alphabet file: %w", err)
	}
	var f alphabetFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse alphabet file %s: %w", path, err)
	}
	return NewAlphabet(f.ProbeKeys)
}

// ResolveAlphabet picks the alphabet from HARVEST_ALPHABET_FILE, then
// HARVEST_ALPHABET, then the default.
func ResolveAlphabet(cfg config.HarvestConfig) (Alphabet, error) {
	switch {
	case cfg.AlphabetFile != "":
		return LoadAlphabetFile(cfg.AlphabetFile)
	case len(cfg.Alphabet) > 0:
		return NewAlphabet(cfg.Alphabet)
	default:
		return DefaultAlphabet(), nil
	}
}
