package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Asset categories used by the normalizers
const (
	AssetImovel       = "IMOVEL"
	AssetImovelRural  = "IMOVEL_RURAL"
	AssetVeiculo      = "VEICULO"
	AssetParticipacao = "PARTICIPACAO_SOCIETARIA"
	AssetAreaRural    = "AREA_USO_SOLO"
)

// Lawsuit roles and relevance levels
const (
	RoleAutor = "AUTOR"
	RoleReu   = "REU"

	RelevanceAlta  = "ALTA"
	RelevanceMedia = "MEDIA"
	RelevanceBaixa = "BAIXA"
)

// Debt status values
const (
	DebtAtiva      = "ATIVA"
	DebtNegociada  = "NEGOCIADA"
	DebtProtestada = "PROTESTADA"
)

// NormalizedAsset is a provider-agnostic asset (real estate, vehicle, stake)
type NormalizedAsset struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id,omitempty"`
	InvestigationID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_asset_dedup,priority:1" json:"investigation_id,omitempty"`
	QueryExecutionID uuid.UUID       `gorm:"type:uuid;index" json:"query_execution_id,omitempty"`
	DedupKey         string          `gorm:"type:char(64);not null;uniqueIndex:idx_asset_dedup,priority:2" json:"-"`
	Category         string          `gorm:"type:varchar(40);not null" json:"category"`
	Description      string          `json:"description"`
	Identifier       string          `json:"identifier,omitempty"`
	EstimatedValue   decimal.Decimal `gorm:"type:numeric(16,2);not null;default:0" json:"estimated_value"`
	HasRestriction   bool            `json:"has_restriction"`
	IsSeizable       bool            `json:"is_seizable"`
	SourceProvider   ProviderID      `gorm:"type:varchar(32);not null" json:"source_provider"`
	RawPayload       JSON            `gorm:"type:jsonb" json:"raw_payload,omitempty"`
}

// TableName overrides the gorm table name
func (NormalizedAsset) TableName() string { return "investigation_assets" }

// ComputeDedupKey derives the duplicate-detection key from identifying fields
func (a *NormalizedAsset) ComputeDedupKey() string {
	a.DedupKey = dedupKey(string(a.SourceProvider), a.Category, a.Identifier, a.Description)
	return a.DedupKey
}

// NormalizedDebt is a provider-agnostic debt, protest or tax liability
type NormalizedDebt struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id,omitempty"`
	InvestigationID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_debt_dedup,priority:1" json:"investigation_id,omitempty"`
	QueryExecutionID uuid.UUID       `gorm:"type:uuid;index" json:"query_execution_id,omitempty"`
	DedupKey         string          `gorm:"type:char(64);not null;uniqueIndex:idx_debt_dedup,priority:2" json:"-"`
	Creditor         string          `json:"creditor"`
	Description      string          `json:"description"`
	DebtType         string          `gorm:"type:varchar(40)" json:"debt_type"`
	Value            decimal.Decimal `gorm:"type:numeric(16,2);not null;default:0" json:"value"`
	Status           string          `gorm:"type:varchar(20)" json:"status"`
	SourceProvider   ProviderID      `gorm:"type:varchar(32);not null" json:"source_provider"`
	RawPayload       JSON            `gorm:"type:jsonb" json:"raw_payload,omitempty"`
}

// TableName overrides the gorm table name
func (NormalizedDebt) TableName() string { return "investigation_debts" }

// ComputeDedupKey derives the duplicate-detection key from identifying fields
func (d *NormalizedDebt) ComputeDedupKey() string {
	d.DedupKey = dedupKey(string(d.SourceProvider), d.Creditor, d.DebtType, d.Description, d.Value.StringFixed(2))
	return d.DedupKey
}

// NormalizedLawsuit is a provider-agnostic court case involving the target
type NormalizedLawsuit struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id,omitempty"`
	InvestigationID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_lawsuit_dedup,priority:1" json:"investigation_id,omitempty"`
	QueryExecutionID uuid.UUID       `gorm:"type:uuid;index" json:"query_execution_id,omitempty"`
	DedupKey         string          `gorm:"type:char(64);not null;uniqueIndex:idx_lawsuit_dedup,priority:2" json:"-"`
	CaseNumber       string          `gorm:"type:varchar(32);index" json:"case_number"`
	Court            string          `json:"court"`
	Role             string          `gorm:"type:varchar(10)" json:"role"`
	Subject          string          `json:"subject"`
	ClaimValue       decimal.Decimal `gorm:"type:numeric(16,2);not null;default:0" json:"claim_value"`
	Relevance        string          `gorm:"type:varchar(10)" json:"relevance"`
	HasAssetFreeze   bool            `json:"has_asset_freeze"`
	SourceProvider   ProviderID      `gorm:"type:varchar(32);not null" json:"source_provider"`
	RawPayload       JSON            `gorm:"type:jsonb" json:"raw_payload,omitempty"`
}

// TableName overrides the gorm table name
func (NormalizedLawsuit) TableName() string { return "investigation_lawsuits" }

// ComputeDedupKey derives the duplicate-detection key. The same case reported
// by two tribunals' APIs is kept once per source.
func (l *NormalizedLawsuit) ComputeDedupKey() string {
	l.DedupKey = dedupKey(string(l.SourceProvider), l.CaseNumber, l.Role)
	return l.DedupKey
}

// NormalizedCorporateLink ties the target to a company (as partner or officer)
// or, for PJ targets, a partner to the target company.
type NormalizedCorporateLink struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id,omitempty"`
	InvestigationID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_link_dedup,priority:1" json:"investigation_id,omitempty"`
	QueryExecutionID uuid.UUID       `gorm:"type:uuid;index" json:"query_execution_id,omitempty"`
	DedupKey         string          `gorm:"type:char(64);not null;uniqueIndex:idx_link_dedup,priority:2" json:"-"`
	CompanyDocument  string          `gorm:"type:varchar(14)" json:"company_document"`
	CompanyName      string          `json:"company_name"`
	PartnerDocument  string          `gorm:"type:varchar(14)" json:"partner_document,omitempty"`
	PartnerName      string          `json:"partner_name,omitempty"`
	Role             string          `json:"role"`
	SharePercent     decimal.Decimal `gorm:"type:numeric(7,4);not null;default:0" json:"share_percent"`
	HasIrregularity  bool            `json:"has_irregularity"`
	IrregularityNote string          `json:"irregularity_note,omitempty"`
	SourceProvider   ProviderID      `gorm:"type:varchar(32);not null" json:"source_provider"`
	RawPayload       JSON            `gorm:"type:jsonb" json:"raw_payload,omitempty"`
}

// TableName overrides the gorm table name
func (NormalizedCorporateLink) TableName() string { return "investigation_corporate_links" }

// ComputeDedupKey derives the duplicate-detection key from identifying fields
func (c *NormalizedCorporateLink) ComputeDedupKey() string {
	c.DedupKey = dedupKey(string(c.SourceProvider), c.CompanyDocument, c.PartnerDocument, c.PartnerName, c.Role)
	return c.DedupKey
}

func dedupKey(parts ...string) string {
	h := sha256.Sum256([]byte(strings.ToUpper(strings.Join(parts, "|"))))
	return hex.EncodeToString(h[:])
}
