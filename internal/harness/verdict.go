package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/calderadb/harness/internal/logscan"
)

// Verdict is the judged outcome of one harness run.
type Verdict struct {
	// TestName identifies the run (the definition file stem).
	TestName string `json:"test_name"`

	// Pass is the overall boolean outcome.
	Pass bool `json:"pass"`

	// Failures are the per-module messages that survived the
	// ignored-errors filter.
	Failures map[string][]string `json:"failures,omitempty"`

	// Transcript is the captured-log error transcript that survived the
	// ignored-errors filter. Non-empty means the log assertion failed.
	Transcript string `json:"transcript,omitempty"`

	// MissingRequired are required error patterns never observed in the
	// failures or the transcript.
	MissingRequired []string `json:"missing_required,omitempty"`
}

// Summary renders the verdict as a short human-readable report.
func (v *Verdict) Summary() string {
	var b strings.Builder
	if v.Pass {
		fmt.Fprintf(&b, "%s: PASS\n", v.TestName)
		return b.String()
	}
	fmt.Fprintf(&b, "%s: FAIL\n", v.TestName)
	if v.Transcript != "" {
		b.WriteString("cluster logs contained errors:\n")
		b.WriteString(v.Transcript)
		if !strings.HasSuffix(v.Transcript, "\n") {
			b.WriteByte('\n')
		}
	}
	for _, name := range sortedKeys(v.Failures) {
		for _, message := range v.Failures[name] {
			fmt.Fprintf(&b, "failure: %s\n", message)
		}
	}
	for _, pattern := range v.MissingRequired {
		fmt.Fprintf(&b, "required error never observed: %q\n", pattern)
	}
	return b.String()
}

// judge applies the error filter to the accumulated failures and the raw
// teardown transcript, producing the final verdict.
//
// The transcript assertion runs against the ignored-filtered transcript;
// required-error satisfaction scans the raw transcript and raw failures, so
// a pattern can be both required and ignored. The filter never mutates a
// collection it is iterating: candidates are copied, filtered into fresh
// slices, and assigned back. All matching entries are removed.
func judge(testName string, failures map[string][]string, rawTranscript string, ignored, required []string) *Verdict {
	transcript := logscan.FilterIgnored(rawTranscript, ignored)
	surviving := filterFailures(failures, ignored)
	missing := unsatisfiedRequired(required, failures, rawTranscript)

	return &Verdict{
		TestName:        testName,
		Pass:            transcript == "" && len(surviving) == 0 && len(missing) == 0,
		Failures:        surviving,
		Transcript:      transcript,
		MissingRequired: missing,
	}
}

// filterFailures removes every message containing an ignored substring,
// then drops modules left with no messages.
func filterFailures(failures map[string][]string, ignored []string) map[string][]string {
	surviving := make(map[string][]string)
	for name, messages := range failures {
		var kept []string
		for _, message := range messages {
			if !containsAny(message, ignored) {
				kept = append(kept, message)
			}
		}
		if len(kept) > 0 {
			surviving[name] = kept
		}
	}
	return surviving
}

// unsatisfiedRequired returns the required patterns with no occurrence in
// any failure message or the transcript. Scanned against the raw inputs,
// before the ignored filter, so a pattern can be both required and ignored.
func unsatisfiedRequired(required []string, failures map[string][]string, transcript string) []string {
	var missing []string
	for _, pattern := range required {
		if strings.Contains(transcript, pattern) {
			continue
		}
		if failuresContain(failures, pattern) {
			continue
		}
		missing = append(missing, pattern)
	}
	return missing
}

func failuresContain(failures map[string][]string, pattern string) bool {
	for _, messages := range failures {
		for _, message := range messages {
			if strings.Contains(message, pattern) {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
