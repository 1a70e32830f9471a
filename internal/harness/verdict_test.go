package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterFailures_RemovesIgnoredAndEmptyModules(t *testing.T) {
	failures := map[string][]string{
		"modA": {"modA: x contains badpattern"},
		"modB": {"modB: real failure", "modB: another badpattern hit"},
	}

	surviving := filterFailures(failures, []string{"badpattern"})

	// modA is fully removed; modB keeps only its unmatched message.
	assert.NotContains(t, surviving, "modA")
	assert.Equal(t, []string{"modB: real failure"}, surviving["modB"])

	// Input untouched: filtering works on copies.
	assert.Len(t, failures["modA"], 1)
	assert.Len(t, failures["modB"], 2)
}

func TestFilterFailures_AllMatchingEntriesRemoved(t *testing.T) {
	failures := map[string][]string{
		"modA": {"flaky one", "flaky two", "flaky three"},
	}

	surviving := filterFailures(failures, []string{"flaky"})
	assert.Empty(t, surviving)
}

func TestUnsatisfiedRequired_SatisfiedByTranscript(t *testing.T) {
	missing := unsatisfiedRequired([]string{"expectedSignature"}, nil,
		"ERROR: expectedSignature raised\n")
	assert.Empty(t, missing)
}

func TestUnsatisfiedRequired_SatisfiedByFailureMessage(t *testing.T) {
	failures := map[string][]string{
		"modA": {"modA: saw expectedSignature during validation"},
	}
	missing := unsatisfiedRequired([]string{"expectedSignature"}, failures, "")
	assert.Empty(t, missing)
}

func TestUnsatisfiedRequired_MissingEverywhere(t *testing.T) {
	missing := unsatisfiedRequired([]string{"expectedSignature"},
		map[string][]string{"modA": {"modA: unrelated"}}, "other noise")
	assert.Equal(t, []string{"expectedSignature"}, missing)
}

func TestJudge_PassWhenNothingSurvives(t *testing.T) {
	v := judge("bootstrap", nil, "", nil, nil)
	assert.True(t, v.Pass)
	assert.Empty(t, v.Failures)
	assert.Empty(t, v.MissingRequired)
}

func TestJudge_IgnoredFailureDoesNotFailRun(t *testing.T) {
	failures := map[string][]string{"modA": {"modA: x contains badpattern"}}

	v := judge("bootstrap", failures, "", []string{"badpattern"}, nil)
	assert.True(t, v.Pass)
}

func TestJudge_SurvivingFailureFailsRun(t *testing.T) {
	failures := map[string][]string{"modA": {"modA: broke"}}

	v := judge("bootstrap", failures, "", nil, nil)
	assert.False(t, v.Pass)
	assert.Equal(t, []string{"modA: broke"}, v.Failures["modA"])
}

func TestJudge_TranscriptFailsRunIndependently(t *testing.T) {
	v := judge("bootstrap", nil, "ERROR: disk full\n", nil, nil)
	assert.False(t, v.Pass)
	assert.Contains(t, v.Transcript, "disk full")
}

func TestJudge_IgnoredErrorsCoverTranscriptLines(t *testing.T) {
	transcript := "ERROR: known flaky shutdown\n"

	v := judge("bootstrap", nil, transcript, []string{"known flaky"}, nil)
	assert.True(t, v.Pass)
	assert.Empty(t, v.Transcript)
}

func TestJudge_RequiredPatternCanAlsoBeIgnored(t *testing.T) {
	// Required satisfaction scans the raw transcript, before the ignore
	// filter suppresses the line.
	transcript := "ERROR: expectedSignature seen\n"

	v := judge("bootstrap", nil, transcript,
		[]string{"expectedSignature"}, []string{"expectedSignature"})
	assert.True(t, v.Pass)
}

func TestJudge_MissingRequiredFailsRun(t *testing.T) {
	v := judge("bootstrap", nil, "", nil, []string{"expectedSignature"})
	assert.False(t, v.Pass)
	assert.Equal(t, []string{"expectedSignature"}, v.MissingRequired)
}

func TestJudge_BothChecksAreIndependent(t *testing.T) {
	// Surviving failures and missing required each alone fail the run.
	failures := map[string][]string{"modA": {"modA: broke"}}

	v := judge("bootstrap", failures, "", nil, []string{"neverSeen"})
	assert.False(t, v.Pass)
	assert.NotEmpty(t, v.Failures)
	assert.NotEmpty(t, v.MissingRequired)
}

func TestSummary_ContainsFailureDetail(t *testing.T) {
	v := &Verdict{
		TestName:        "bootstrap",
		Pass:            false,
		Failures:        map[string][]string{"modA": {"modA: broke"}},
		Transcript:      "ERROR: disk full\n",
		MissingRequired: []string{"expectedSignature"},
	}

	s := v.Summary()
	assert.Contains(t, s, "bootstrap: FAIL")
	assert.Contains(t, s, "ERROR: disk full")
	assert.Contains(t, s, "modA: broke")
	assert.Contains(t, s, `"expectedSignature"`)
}

func TestSummary_Pass(t *testing.T) {
	v := &Verdict{TestName: "bootstrap", Pass: true}
	assert.Equal(t, "bootstrap: PASS\n", v.Summary())
}
