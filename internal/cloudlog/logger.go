// Package cloudlog implements the ambient structured-logging layer (see
// SPEC_FULL.md's AMBIENT STACK): JSON severity-tagged entries written
// locally, optionally forwarded to cloud.google.com/go/logging. Adapted
// from andymwolf-agentium's internal/cloud/gcp/logging.go, trimmed of its
// GCP-metadata-server VM detection (no VM provisioning is in scope here;
// forwarding is opt-in via ORCHESTRA_CLOUD_LOGGING rather than
// auto-detected) and generalized from a fixed "agentium-controller"
// component label to whichever component constructs the logger.
package cloudlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	gcplogging "cloud.google.com/go/logging"

	"github.com/andywolf/orchestra/internal/redact"
)

// Severity mirrors Cloud Logging's severity enum.
type Severity string

const (
	SeverityDebug    Severity = "DEBUG"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Entry is one structured log line.
type Entry struct {
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	SessionID string            `json:"sessionId"`
	Iteration int               `json:"iteration"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Logger is a structured local logger with an optional cloud forwarder.
// Safe for concurrent use (the File Scheduler logs from multiple workers).
type Logger struct {
	mu        sync.Mutex
	w         io.Writer
	sessionID string
	iteration int
	labels    map[string]string
	cloud     *gcplogging.Logger
	client    *gcplogging.Client
}

// Option configures a Logger at construction time.
type Option func(*Logger)

// WithLabels attaches fixed labels (e.g. "component": "scheduler") to every
// entry this Logger emits.
func WithLabels(labels map[string]string) Option {
	return func(l *Logger) {
		for k, v := range labels {
			l.labels[k] = v
		}
	}
}

// WithWriter overrides the local writer (default os.Stderr).
func WithWriter(w io.Writer) Option {
	return func(l *Logger) { l.w = w }
}

// New constructs a Logger for sessionID. When the ORCHESTRA_CLOUD_LOGGING
// environment variable is "1", entries are additionally forwarded to
// cloud.google.com/go/logging using ambient application-default
// credentials; forwarding failures are swallowed (local logging is the
// durable path, cloud forwarding is best-effort).
func New(ctx context.Context, sessionID string, opts ...Option) *Logger {
	l := &Logger{
		w:         os.Stderr,
		sessionID: sessionID,
		labels:    map[string]string{"sessionId": sessionID, "component": "orchestra"},
	}
	for _, opt := range opts {
		opt(l)
	}

	if os.Getenv("ORCHESTRA_CLOUD_LOGGING") == "1" {
		project := firstNonEmpty(os.Getenv("GOOGLE_CLOUD_PROJECT"), os.Getenv("GCP_PROJECT"), os.Getenv("GCLOUD_PROJECT"))
		if project != "" {
			if client, err := gcplogging.NewClient(ctx, project); err == nil {
				l.client = client
				l.cloud = client.Logger("orchestra")
			}
		}
	}

	return l
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// SetIteration updates the iteration number attached to subsequent entries.
func (l *Logger) SetIteration(iteration int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.iteration = iteration
}

// Log writes one structured entry, scrubbing msg of secret-shaped
// substrings first (adapter stdout/stderr can echo back credentials).
func (l *Logger) Log(severity Severity, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	clean := redact.Scrub(msg)
	entry := Entry{
		Severity:  severity,
		Message:   clean,
		Timestamp: time.Now().UTC(),
		SessionID: l.sessionID,
		Iteration: l.iteration,
		Labels:    l.labels,
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.w, `{"severity":"ERROR","message":"cloudlog: marshal failed: %v"}`+"\n", err)
		return
	}
	fmt.Fprintf(l.w, "%s\n", raw)

	if l.cloud != nil {
		l.cloud.Log(gcplogging.Entry{Severity: cloudSeverity(severity), Payload: entry})
	}
}

func cloudSeverity(s Severity) gcplogging.Severity {
	switch s {
	case SeverityDebug:
		return gcplogging.Debug
	case SeverityWarning:
		return gcplogging.Warning
	case SeverityError:
		return gcplogging.Error
	case SeverityCritical:
		return gcplogging.Critical
	default:
		return gcplogging.Info
	}
}

func (l *Logger) Infof(format string, args ...interface{})  { l.Log(SeverityInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.Log(SeverityWarning, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.Log(SeverityError, fmt.Sprintf(format, args...)) }

// Close flushes the cloud forwarder, if one is active.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client == nil {
		return nil
	}
	if err := l.cloud.Flush(); err != nil {
		return fmt.Errorf("flush cloud logger: %w", err)
	}
	return l.client.Close()
}
