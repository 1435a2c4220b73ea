// Package state implements the Session data model and the State Manager
// (spec.md §3, §4.4): durable session file, append-only checkpoint log,
// and workflow-step ledger.
package state

import "time"

// Phase is one state of the Phase Orchestrator's state machine (spec.md §4.9).
type Phase string

const (
	PhaseInit       Phase = "init"
	PhasePlanning   Phase = "planning"
	PhasePlanReview Phase = "plan_review"
	PhaseExecuting  Phase = "executing"
	PhaseValidating Phase = "validating"
	PhaseAuditing   Phase = "auditing"
	PhaseConsulting Phase = "consulting"
	PhaseRecovery   Phase = "recovery"
	PhaseCompleted  Phase = "completed"
	PhaseReverted   Phase = "reverted"
	PhaseMaxIter    Phase = "max_iterations"
	PhaseCancelled  Phase = "cancelled"
)

// FileAction is what the Executor must do to a File artifact.
type FileAction string

const (
	ActionCreate FileAction = "create"
	ActionModify FileAction = "modify"
)

// FileStatus is the lifecycle state of a File artifact. The sequence is
// monotone along pending -> generating -> generated -> validating ->
// auditing -> approved, except rejected -> generating on retry, and the
// terminal failed state.
type FileStatus string

const (
	StatusPending    FileStatus = "pending"
	StatusGenerating FileStatus = "generating"
	StatusGenerated  FileStatus = "generated"
	StatusValidating FileStatus = "validating"
	StatusAuditing   FileStatus = "auditing"
	StatusApproved   FileStatus = "approved"
	StatusRejected   FileStatus = "rejected"
	StatusFailed     FileStatus = "failed"
)

// AgentRole mirrors adapter.Role in the data model layer, kept as a
// distinct string type here so this package has no import dependency on
// internal/adapter.
type AgentRole string

const (
	RoleArchitect  AgentRole = "architect"
	RoleExecutor   AgentRole = "executor"
	RoleAuditor    AgentRole = "auditor"
	RoleConsultant AgentRole = "consultant"
)

// ErrorCode mirrors adapter.ErrorKind in the data model layer.
type ErrorCode string

const (
	ErrorNone             ErrorCode = "NONE"
	ErrorRateLimit        ErrorCode = "RATE_LIMIT"
	ErrorContextExceeded  ErrorCode = "CONTEXT_EXCEEDED"
	ErrorTimeout          ErrorCode = "TIMEOUT"
	ErrorAPI              ErrorCode = "API_ERROR"
)

// Attempt (a.k.a. ModelUsage) is one invocation of one adapter for one
// step. Immutable once written.
type Attempt struct {
	ModelID          string    `json:"modelId"`
	Provider         string    `json:"provider"`
	Role             AgentRole `json:"role"`
	TokensUsed       int       `json:"tokensUsed"`
	LatencyMs        int64     `json:"latencyMs"`
	Success          bool      `json:"success"`
	ErrorCode        ErrorCode `json:"errorCode"`
	EstimatedCostUsd float64   `json:"estimatedCostUsd"`
	Timestamp        time.Time `json:"timestamp"`
}

// ValidationResult is the Validator's verdict for one File (spec.md §4.5).
type ValidationResult struct {
	SyntaxOK       bool     `json:"syntaxOk"`
	Complete       bool     `json:"complete"`
	Language       string   `json:"language"`
	TestsRan       bool     `json:"testsRan"`
	TestsPassed    bool     `json:"testsPassed"`
	Issues         []string `json:"issues,omitempty"`
}

// File is an artifact the Executor must write.
type File struct {
	Path             string            `json:"path"`
	Action           FileAction        `json:"action"`
	Status           FileStatus        `json:"status"`
	ContentHash      string            `json:"contentHash,omitempty"`
	ValidationResult *ValidationResult `json:"validationResult,omitempty"`
	AuditVerdict     string            `json:"auditVerdict,omitempty"`
	Attempts         []Attempt         `json:"attempts"`
}

// WorkflowStepStatus is the lifecycle state of one WorkflowStep.
type WorkflowStepStatus string

const (
	StepPending   WorkflowStepStatus = "pending"
	StepRunning   WorkflowStepStatus = "running"
	StepCompleted WorkflowStepStatus = "completed"
	StepFailed    WorkflowStepStatus = "failed"
)

// WorkflowStep is one logical phase execution. Appended to the session;
// never edited once appended (attempts may be appended to in call order
// while the step itself is still running).
type WorkflowStep struct {
	ID         string             `json:"id"`
	AgentRole  AgentRole          `json:"agentRole"`
	Status     WorkflowStepStatus `json:"status"`
	FilePath   string             `json:"filePath,omitempty"`
	Attempts   []Attempt          `json:"attempts"`
	OutputHash string             `json:"outputHash,omitempty"`
	StartTime  time.Time          `json:"startTime"`
	EndTime    time.Time          `json:"endTime,omitempty"`
	DurationMs int64              `json:"durationMs,omitempty"`
}

// GlobalMetrics is the running session aggregate, updated after every Attempt.
type GlobalMetrics struct {
	TotalCostEstimate  float64 `json:"totalCostEstimate"`
	TotalTokens        int     `json:"totalTokens"`
	TotalAttempts      int     `json:"totalAttempts"`
	SuccessfulAttempts int     `json:"successfulAttempts"`
	FailedAttempts     int     `json:"failedAttempts"`
	FallbackRotations  int     `json:"fallbackRotations"`
	AvgLatencyMs       float64 `json:"avgLatencyMs"`
}

// Record folds one Attempt into the running aggregate.
func (m *GlobalMetrics) Record(a Attempt) {
	m.TotalAttempts++
	m.TotalTokens += a.TokensUsed
	m.TotalCostEstimate += a.EstimatedCostUsd
	if a.Success {
		m.SuccessfulAttempts++
	} else {
		m.FailedAttempts++
	}
	// running average: newAvg = oldAvg + (x - oldAvg) / n
	n := float64(m.TotalAttempts)
	m.AvgLatencyMs += (float64(a.LatencyMs) - m.AvgLatencyMs) / n
}

// Checkpoint is a snapshot rooted at a phase transition.
type Checkpoint struct {
	ID          string    `json:"id"` // 3-digit zero-padded monotone
	Phase       Phase     `json:"phase"`
	Label       string    `json:"label"`
	CopiedPaths []string  `json:"copiedPaths"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Session is one user task: the root document the State Manager persists.
type Session struct {
	SessionID    string         `json:"sessionId"`
	Task         string         `json:"task"`
	Phase        Phase          `json:"phase"`
	Iteration    int            `json:"iteration"`
	StartTime    time.Time      `json:"startTime"`
	LastActivity time.Time      `json:"lastActivity"`
	Files        []File         `json:"files"`
	Workflow     []WorkflowStep `json:"workflow"`
	GlobalMetrics GlobalMetrics `json:"globalMetrics"`
	Checkpoints  []Checkpoint   `json:"checkpoints"`
	CanResume    bool           `json:"canResume"`
	LastError    string         `json:"lastError,omitempty"`
	Fatal        bool           `json:"fatal,omitempty"`
	RecoveryAttempts int        `json:"recoveryAttempts"`
}
