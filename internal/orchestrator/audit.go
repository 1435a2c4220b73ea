package orchestrator

import "strings"

// Audit verdicts (spec.md §4.9's AUDITING state): the audit file's first
// line is either of these two words; anything else is fail-closed to
// NeedsWork with generic feedback.
const (
	VerdictApproved  = "APPROVED"
	VerdictNeedsWork = "NEEDS_WORK"
)

// AuditVerdict is the parsed result of an audit file: the verdict word plus
// the feedback that follows it (the rest of the file on NEEDS_WORK).
type AuditVerdict struct {
	Verdict  string
	Feedback string
	Malformed bool // first line was neither APPROVED nor NEEDS_WORK
}

// parseAuditVerdict reads the audit file's first line as the verdict and
// the remainder as feedback, fail-closed to NeedsWork on anything
// unrecognized (spec.md §4.9's tie-break rule), grounded on
// andymwolf-agentium/internal/controller/judge.go's parseJudgeVerdict,
// which defaults to its own fail-closed verdict (BLOCKED) when no
// AGENTIUM_EVAL signal line is found. Unlike judge.go's regex-anchored
// signal line, the audit file contract here is "first line is the verdict"
// rather than a signal embedded anywhere in free-form output, so this
// parses structurally instead of matching a pattern.
func parseAuditVerdict(content string) AuditVerdict {
	content = strings.TrimSpace(content)
	if content == "" {
		return AuditVerdict{Verdict: VerdictNeedsWork, Feedback: "audit file was empty", Malformed: true}
	}

	lines := strings.SplitN(content, "\n", 2)
	first := strings.TrimSpace(lines[0])
	rest := ""
	if len(lines) > 1 {
		rest = strings.TrimSpace(lines[1])
	}

	switch first {
	case VerdictApproved:
		return AuditVerdict{Verdict: VerdictApproved, Feedback: rest}
	case VerdictNeedsWork:
		return AuditVerdict{Verdict: VerdictNeedsWork, Feedback: rest}
	default:
		return AuditVerdict{
			Verdict:   VerdictNeedsWork,
			Feedback:  "audit output did not start with APPROVED or NEEDS_WORK; treated as NEEDS_WORK: " + first,
			Malformed: true,
		}
	}
}
