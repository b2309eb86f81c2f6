// Package subjects loads and normalizes the list of subjects to
// inventory, either from the SCIM user listing or from a file.
package subjects

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Parse reads subject IDs from lines of text. Blank lines and lines
// starting with # are skipped; duplicates are dropped keeping the
// first occurrence so input order is preserved.
func Parse(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Dedupe removes duplicate subjects preserving first-seen order.
func Dedupe(in []string) []string {
	return Parse(in)
}

// ReadFile loads subjects from a file, one per line.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open subjects file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read subjects file: %w", err)
	}

	return Parse(lines), nil
}
