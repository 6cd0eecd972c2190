package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvestigationStatus is the lifecycle state of an investigation scan
type InvestigationStatus string

const (
	InvestigationPending    InvestigationStatus = "PENDING"
	InvestigationInProgress InvestigationStatus = "IN_PROGRESS"
	InvestigationCompleted  InvestigationStatus = "COMPLETED"
	InvestigationPartial    InvestigationStatus = "PARTIAL"
	InvestigationFailed     InvestigationStatus = "FAILED"
)

// AnalysisStatus tracks the downstream analysis handoff
type AnalysisStatus string

const (
	AnalysisNotStarted AnalysisStatus = "NOT_STARTED"
	AnalysisQueued     AnalysisStatus = "QUEUED"
	AnalysisDone       AnalysisStatus = "DONE"
	// AnalysisPending means queries completed but analysis failed or could
	// not be scheduled; it can be re-triggered later.
	AnalysisPending AnalysisStatus = "PENDING"
)

// ProgressStatus is the state reported by InvestigationProgress
type ProgressStatus string

const (
	ProgressRunning   ProgressStatus = "RUNNING"
	ProgressCompleted ProgressStatus = "COMPLETED"
	ProgressPartial   ProgressStatus = "PARTIAL"
	ProgressFailed    ProgressStatus = "FAILED"
)

// ExecutionStatus is the outcome recorded for one query execution
type ExecutionStatus string

const (
	ExecutionPending ExecutionStatus = "PENDING"
	ExecutionSuccess ExecutionStatus = "SUCCESS"
	ExecutionMock    ExecutionStatus = "MOCK"
	ExecutionCached  ExecutionStatus = "CACHED"
	ExecutionError   ExecutionStatus = "ERROR"
)

// StringList is a []string stored as a JSON array
type StringList []string

// Scan implements the sql.Scanner interface
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported string list source type %T", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Investigation is a patrimonial dossier on one target
type Investigation struct {
	ID              uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	TargetName      string              `json:"target_name"`
	TargetDocument  string              `gorm:"type:varchar(14);not null;index" json:"target_document"`
	TargetType      TargetType          `gorm:"type:varchar(2);not null" json:"target_type"`
	Depth           DepthTier           `gorm:"type:varchar(20);not null" json:"depth"`
	Status          InvestigationStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	AnalysisStatus  AnalysisStatus      `gorm:"type:varchar(20);not null;default:NOT_STARTED" json:"analysis_status"`
	UserID          string              `json:"user_id"`
	LegalBasis      string              `json:"legal_basis"`
	TotalAssets     decimal.Decimal     `gorm:"type:numeric(16,2);not null;default:0" json:"total_assets"`
	TotalDebts      decimal.Decimal     `gorm:"type:numeric(16,2);not null;default:0" json:"total_debts"`
	TotalCost       decimal.Decimal     `gorm:"type:numeric(14,4);not null;default:0" json:"total_cost"`
	RiskScore       *int                `json:"risk_score,omitempty"`
	Summary         string              `json:"summary,omitempty"`
	Recommendations StringList          `gorm:"type:jsonb" json:"recommendations,omitempty"`
	StartedAt       *time.Time          `json:"started_at,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// TableName overrides the gorm table name
func (Investigation) TableName() string { return "investigations" }

// QueryExecution records one (provider, query type) execution
type QueryExecution struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvestigationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"investigation_id"`
	Provider        ProviderID      `gorm:"type:varchar(32);not null;index" json:"provider"`
	QueryType       QueryType       `gorm:"type:varchar(32);not null" json:"query_type"`
	Params          StringMap       `gorm:"type:jsonb" json:"params,omitempty"`
	Status          ExecutionStatus `gorm:"type:varchar(10);not null;index" json:"status"`
	IsMock          bool            `json:"is_mock"`
	Cost            decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"cost"`
	ResponseTimeMs  int64           `json:"response_time_ms"`
	RecordCount     int             `json:"record_count"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	RawResponse     JSON            `gorm:"type:jsonb" json:"raw_response,omitempty"`
	Attempt         int             `gorm:"not null;default:1" json:"attempt"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      *time.Time      `json:"finished_at,omitempty"`
}

// TableName overrides the gorm table name
func (QueryExecution) TableName() string { return "query_executions" }

// StatusForResult maps a provider result onto an execution status
func StatusForResult(r *ProviderResult) ExecutionStatus {
	switch {
	case r == nil || !r.Success:
		return ExecutionError
	case r.IsMock:
		return ExecutionMock
	case r.Cached:
		return ExecutionCached
	default:
		return ExecutionSuccess
	}
}

// StringMap is a map[string]string stored as a JSON object
type StringMap map[string]string

// Scan implements the sql.Scanner interface
func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported string map source type %T", value)
	}
}

// Value implements the driver.Valuer interface
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// ComplianceLog is the audit trail entry for one provider query
type ComplianceLog struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	InvestigationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"investigation_id"`
	UserID          string     `json:"user_id"`
	LegalBasis      string     `json:"legal_basis"`
	Provider        ProviderID `gorm:"type:varchar(32)" json:"provider"`
	QueryType       QueryType  `gorm:"type:varchar(32)" json:"query_type"`
	TargetDocument  string     `gorm:"type:varchar(20)" json:"target_document"`
	Success         bool       `json:"success"`
	IsMock          bool       `json:"is_mock"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TableName overrides the gorm table name
func (ComplianceLog) TableName() string { return "compliance_logs" }

// AnalysisResult is produced by the downstream analysis collaborator
type AnalysisResult struct {
	RiskScore       int      `json:"risk_score"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

// InvestigationProgress reports a running or finished scan
type InvestigationProgress struct {
	InvestigationID       uuid.UUID      `json:"investigation_id"`
	TotalQueries          int            `json:"total_queries"`
	CompletedQueries      int            `json:"completed_queries"`
	FailedQueries         int            `json:"failed_queries"`
	Status                ProgressStatus `json:"status"`
	StartedAt             time.Time      `json:"started_at"`
	EstimatedCompletionMs *int64         `json:"estimated_completion_ms,omitempty"`
}

// Resolved returns the number of queries that reached a final outcome
func (p InvestigationProgress) Resolved() int {
	return p.CompletedQueries + p.FailedQueries
}

// TerminalStatus derives the final status from the failure ratio
func TerminalStatus(total, failed int) ProgressStatus {
	switch {
	case total == 0 || failed >= total:
		return ProgressFailed
	case failed > 0:
		return ProgressPartial
	default:
		return ProgressCompleted
	}
}

// InvestigationStatusFor maps a terminal progress status onto the investigation
func InvestigationStatusFor(s ProgressStatus) InvestigationStatus {
	switch s {
	case ProgressCompleted:
		return InvestigationCompleted
	case ProgressPartial:
		return InvestigationPartial
	case ProgressFailed:
		return InvestigationFailed
	default:
		return InvestigationInProgress
	}
}
