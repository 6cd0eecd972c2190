package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProviderQuery is a single lookup request sent to a provider.
// Build it with NewProviderQuery; the params map is copied so a query can be
// shared between goroutines.
type ProviderQuery struct {
	QueryType      QueryType         `json:"query_type"`
	TargetDocument string            `json:"target_document"`
	TargetType     TargetType        `json:"target_type"`
	Params         map[string]string `json:"params,omitempty"`
}

// NewProviderQuery creates a query with a digits-only document and a private
// copy of params
func NewProviderQuery(queryType QueryType, document string, targetType TargetType, params map[string]string) ProviderQuery {
	var copied map[string]string
	if len(params) > 0 {
		copied = make(map[string]string, len(params))
		for k, v := range params {
			copied[k] = v
		}
	}
	return ProviderQuery{
		QueryType:      queryType,
		TargetDocument: digitsOnly(document),
		TargetType:     targetType,
		Params:         copied,
	}
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// Param returns a query parameter or the empty string
func (q ProviderQuery) Param(key string) string {
	if q.Params == nil {
		return ""
	}
	return q.Params[key]
}

// ProviderResult is produced exactly once for every executed query
type ProviderResult struct {
	Success        bool                      `json:"success"`
	Provider       ProviderID                `json:"provider"`
	QueryType      QueryType                 `json:"query_type"`
	Data           map[string]interface{}    `json:"data,omitempty"`
	Assets         []NormalizedAsset         `json:"normalized_assets"`
	Debts          []NormalizedDebt          `json:"normalized_debts"`
	Lawsuits       []NormalizedLawsuit       `json:"normalized_lawsuits"`
	CorporateLinks []NormalizedCorporateLink `json:"normalized_corporate_links"`
	RawResponse    JSON                      `json:"raw_response,omitempty"`
	ResponseTimeMs int64                     `json:"response_time_ms"`
	Cost           decimal.Decimal           `json:"cost"`
	IsMock         bool                      `json:"is_mock"`
	Cached         bool                      `json:"cached"`
	ErrorMessage   string                    `json:"error_message,omitempty"`
}

// EnsureCollections replaces nil normalized slices with empty ones so a
// successful result never reports "absent" for a query that ran.
func (r *ProviderResult) EnsureCollections() {
	if r.Assets == nil {
		r.Assets = []NormalizedAsset{}
	}
	if r.Debts == nil {
		r.Debts = []NormalizedDebt{}
	}
	if r.Lawsuits == nil {
		r.Lawsuits = []NormalizedLawsuit{}
	}
	if r.CorporateLinks == nil {
		r.CorporateLinks = []NormalizedCorporateLink{}
	}
}

// RecordCount returns the number of normalized records attached to the result
func (r *ProviderResult) RecordCount() int {
	return len(r.Assets) + len(r.Debts) + len(r.Lawsuits) + len(r.CorporateLinks)
}

// Credentials holds provider secrets (API keys, client ids)
type Credentials map[string]string

// Scan implements the sql.Scanner interface
func (c *Credentials) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported credentials source type %T", value)
	}
	return json.Unmarshal(data, c)
}

// Value implements the driver.Valuer interface
func (c Credentials) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// ProviderConfig holds per-provider settings and the running monthly spend
type ProviderConfig struct {
	ProviderID         ProviderID          `gorm:"primaryKey;type:varchar(32)" json:"provider_id"`
	Credentials        Credentials         `gorm:"type:jsonb" json:"-"`
	BaseURL            string              `json:"base_url"`
	IsActive           bool                `gorm:"not null;default:false" json:"is_active"`
	IsConfigured       bool                `gorm:"not null;default:false" json:"is_configured"`
	MonthlyBudget      decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"monthly_budget"`
	MonthlySpent       decimal.Decimal     `gorm:"type:numeric(14,2);not null;default:0" json:"monthly_spent"`
	CostPerQuery       decimal.NullDecimal `gorm:"type:numeric(10,4)" json:"cost_per_query"`
	RateLimitPerMinute int                 `gorm:"not null;default:0" json:"rate_limit_per_minute"`
	RateLimitPerDay    int                 `gorm:"not null;default:0" json:"rate_limit_per_day"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// TableName overrides the gorm table name
func (ProviderConfig) TableName() string {
	return "provider_configs"
}

// Usable reports whether real calls may be made with this configuration
func (c *ProviderConfig) Usable() bool {
	return c != nil && c.IsConfigured && c.IsActive
}

// Credential returns a credential value or the empty string
func (c *ProviderConfig) Credential(key string) string {
	if c == nil || c.Credentials == nil {
		return ""
	}
	return c.Credentials[key]
}

// BudgetExhausted reports whether a configured monthly budget is used up
func (c *ProviderConfig) BudgetExhausted() bool {
	if c == nil || !c.MonthlyBudget.Valid || !c.MonthlyBudget.Decimal.IsPositive() {
		return false
	}
	return c.MonthlySpent.GreaterThanOrEqual(c.MonthlyBudget.Decimal)
}

// RateLimitInfo is the current usage of a provider against its ceilings.
// It is derived on demand and never persisted.
type RateLimitInfo struct {
	Provider       ProviderID `json:"provider"`
	MinuteCount    int64      `json:"minute_count"`
	DayCount       int64      `json:"day_count"`
	PerMinuteLimit int        `json:"per_minute_limit"`
	PerDayLimit    int        `json:"per_day_limit"`
	IsLimited      bool       `json:"is_limited"`
	ResetsAt       time.Time  `json:"resets_at"`
}

// BudgetAlert is computed from current spend and budget; it is not stored
type BudgetAlert struct {
	Provider    ProviderID      `json:"provider"`
	PercentUsed decimal.Decimal `json:"percent_used"`
	Budget      decimal.Decimal `json:"budget"`
	Spent       decimal.Decimal `json:"spent"`
	Message     string          `json:"message"`
	Severity    AlertSeverity   `json:"severity"`
}

// ProviderSpend summarizes one provider's spend for the current period
type ProviderSpend struct {
	Provider    ProviderID          `json:"provider"`
	Spent       decimal.Decimal     `json:"spent"`
	Budget      decimal.NullDecimal `json:"budget"`
	PercentUsed decimal.NullDecimal `json:"percent_used"`
	IsActive    bool                `json:"is_active"`
}

// ProviderInfo describes a registered provider for listings
type ProviderInfo struct {
	ID         ProviderID       `json:"id"`
	Name       string           `json:"name"`
	Category   ProviderCategory `json:"category"`
	QueryTypes []QueryType      `json:"query_types"`
	Configured bool             `json:"configured"`
}
