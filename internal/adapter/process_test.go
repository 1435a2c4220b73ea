package adapter

import (
	"context"
	"testing"
	"time"
)

func TestRunCapturesExitCodeAndOutput(t *testing.T) {
	spec := RunSpec{
		Binary: "sh",
		Args:   []string{"-c", "echo hello; exit 3"},
	}

	result, err := Run(context.Background(), spec, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
	if result.Stdout != "hello\n" {
		t.Fatalf("unexpected stdout: %q", result.Stdout)
	}
}

func TestRunTimesOut(t *testing.T) {
	spec := RunSpec{
		Binary: "sh",
		Args:   []string{"-c", "sleep 5"},
	}

	result, err := Run(context.Background(), spec, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.TimedOut {
		t.Fatalf("expected TimedOut to be true")
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name          string
		result        RunResult
		outputPresent bool
		want          ErrorKind
	}{
		{"success", RunResult{ExitCode: 0}, true, ErrNone},
		{"timeout", RunResult{TimedOut: true}, false, ErrTimeout},
		{"rate limit", RunResult{ExitCode: 1, Stderr: "HTTP 429 too many requests"}, false, ErrRateLimit},
		{"context exceeded", RunResult{ExitCode: 1, Stderr: "maximum context length exceeded"}, false, ErrContextExceeded},
		{"generic api error", RunResult{ExitCode: 1, Stderr: "unexpected server error"}, false, ErrAPI},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyError(tc.result, tc.outputPresent)
			if got != tc.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tc.want)
			}
		})
	}
}
