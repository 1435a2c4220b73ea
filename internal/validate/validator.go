// Package validate implements the Validator (spec.md §4.5): language
// detection, syntax-only probes per language family, a completeness
// heuristic, and test-runner detection/invocation.
package validate

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Result is the Validator's verdict for one file.
type Result struct {
	Valid    bool
	Language string
	Errors   []string
	Issues   []CompletenessIssue
}

// Validator ties together language detection, syntax probing, and the
// completeness heuristic behind the contract spec.md §4.5 names.
type Validator struct {
	ProbeTimeout time.Duration
}

// New constructs a Validator with a default 10s per-file probe timeout.
func New() *Validator {
	return &Validator{ProbeTimeout: 10 * time.Second}
}

// ValidateFile reads path, runs its syntax probe (if one exists for the
// detected or declared language) and the completeness heuristic, and
// returns a Result.
func (v *Validator) ValidateFile(ctx context.Context, path string, declaredLanguage string) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read file for validation: %w", err)
	}
	content := string(raw)

	language := declaredLanguage
	if language == "" {
		language = DetectLanguage(path)
	}

	result := Result{Language: language, Valid: true}

	if err := v.probeSyntax(ctx, path, content, language); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	issues := CheckCompleteness(content, language)
	if len(issues) > 0 {
		result.Valid = false
		result.Issues = issues
	}

	return result, nil
}

func (v *Validator) probeSyntax(ctx context.Context, path, content, language string) error {
	switch language {
	case "go":
		return probeGo(path, content)
	case "python":
		return probePython(ctx, path, v.ProbeTimeout)
	case "javascript", "typescript":
		return probeJSOrTS(path, content, language)
	case "rust":
		return probeRust(ctx, path, v.ProbeTimeout)
	case "json":
		return probeJSON(content)
	case "yaml":
		return probeYAML(content)
	default:
		// No probe registered for this language; syntax-valid by default,
		// the completeness heuristic still applies.
		return nil
	}
}
