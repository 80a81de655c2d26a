package config

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys maps each section to its valid keys.
var knownKeys = map[string][]string{
	"app":     {"app_key", "app_secret", "client_identifier", "locale", "token_url"},
	"logging": {"log_level"},
	"network": {"timeout"},
}

// knownSections is the sorted list of section names, for suggestions.
var knownSections = func() []string {
	out := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each one. An unknown table
// and its children are reported once.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	seen := make(map[string]bool)

	for _, key := range md.Undecoded() {
		depth := 1
		if _, ok := knownKeys[key[0]]; ok {
			depth = 2
		}

		if len(key) < depth {
			continue
		}

		id := strings.Join(key[:depth], ".")
		if seen[id] {
			continue
		}

		seen[id] = true

		errs = append(errs, unknownKeyError(key[:depth]))
	}

	return errors.Join(errs...)
}

func unknownKeyError(key toml.Key) error {
	section := key[0]

	keys, ok := knownKeys[section]
	if !ok {
		// A bare top-level key may be a section key written without its header.
		for _, s := range knownSections {
			if slices.Contains(knownKeys[s], section) {
				return fmt.Errorf("config key %q must be inside [%s]", section, s)
			}
		}

		if s := closestMatch(section, knownSections); s != "" {
			return fmt.Errorf("unknown config section %q, did you mean %q?", section, s)
		}

		return fmt.Errorf("unknown config section %q", section)
	}

	name := key[1]
	if s := closestMatch(name, keys); s != "" {
		return fmt.Errorf("unknown config key %q in [%s], did you mean %q?", name, section, s)
	}

	return fmt.Errorf("unknown config key %q in [%s]", name, section)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 0; i < len(a); i++ {
		curr[0] = i + 1

		for j := 0; j < len(b); j++ {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
