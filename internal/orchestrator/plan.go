package orchestrator

import (
	"strings"

	"github.com/andywolf/orchestra/internal/scheduler"
	"github.com/andywolf/orchestra/internal/state"
)

// ParsePlan turns the Architect's plan text into a flat, dependency-free
// file list (spec.md §4.9 EXECUTING: "Parse plan → file list"). spec.md
// leaves the plan's wire format an Open Question; this implementation fixes
// it to one line per file, "CREATE <path>" or "MODIFY <path>"
// (case-insensitive keyword, blank lines and "#"-prefixed comments
// ignored), the same flat-directive shape the Architect prompt asks it to
// emit. Lines that don't match the pattern are skipped rather than failing
// the whole plan, since prose explaining the plan is expected around the
// directive lines.
func ParsePlan(content string) []scheduler.FilePlan {
	var files []scheduler.FilePlan
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		var action state.FileAction
		switch strings.ToUpper(fields[0]) {
		case "CREATE":
			action = state.ActionCreate
		case "MODIFY":
			action = state.ActionModify
		default:
			continue
		}
		files = append(files, scheduler.FilePlan{Path: fields[1], Action: action})
	}
	return files
}
