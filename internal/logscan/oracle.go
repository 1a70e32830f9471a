// Package logscan implements the log-based pass/fail oracle.
//
// Captured per-node logs are grepped for error signatures; the surviving
// lines form the transcript the harness asserts empty at teardown.
package logscan

import (
	"strings"

	"golang.org/x/text/cases"
)

// errorSignature is the substring that marks a log line as an error.
// Matching is case-insensitive via Unicode case folding.
const errorSignature = "error"

var fold = cases.Fold()

// containsFold reports whether s contains substr under case folding.
func containsFold(s, substr string) bool {
	return strings.Contains(fold.String(s), fold.String(substr))
}

// Grep returns the lines of text containing the error signature, newline
// terminated, preserving input order. Returns "" when nothing matches.
func Grep(text string) string {
	var b strings.Builder
	for _, line := range lines(text) {
		if containsFold(line, errorSignature) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Scan decides the oracle verdict: true when the transcript still contains
// at least one error occurrence.
func Scan(transcript string) bool {
	return containsFold(transcript, errorSignature)
}

// FilterIgnored drops transcript lines containing any of the ignored
// substrings. An empty ignore list returns the transcript unchanged.
func FilterIgnored(transcript string, ignored []string) string {
	if len(ignored) == 0 || transcript == "" {
		return transcript
	}
	var b strings.Builder
	for _, line := range lines(transcript) {
		if !matchesAny(line, ignored) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// matchesAny reports whether line contains any of the given substrings.
func matchesAny(line string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}

func lines(text string) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
