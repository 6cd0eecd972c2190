// Package memory is an in-process implementation of storage.Store
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type dedupIndex map[uuid.UUID]map[string]bool

func (d dedupIndex) claim(investigationID uuid.UUID, key string) bool {
	keys, ok := d[investigationID]
	if !ok {
		keys = make(map[string]bool)
		d[investigationID] = keys
	}
	if keys[key] {
		return false
	}
	keys[key] = true
	return true
}

// Store keeps everything in maps guarded by one mutex
type Store struct {
	mu sync.RWMutex

	investigations map[uuid.UUID]models.Investigation
	executions     map[uuid.UUID]models.QueryExecution
	execOrder      []uuid.UUID

	assets   []models.NormalizedAsset
	debts    []models.NormalizedDebt
	lawsuits []models.NormalizedLawsuit
	links    []models.NormalizedCorporateLink
	dedup    map[string]dedupIndex

	configs    map[models.ProviderID]models.ProviderConfig
	compliance []models.ComplianceLog

	now func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		investigations: make(map[uuid.UUID]models.Investigation),
		executions:     make(map[uuid.UUID]models.QueryExecution),
		dedup: map[string]dedupIndex{
			"assets":   {},
			"debts":    {},
			"lawsuits": {},
			"links":    {},
		},
		configs: make(map[models.ProviderID]models.ProviderConfig),
		now:     time.Now,
	}
}

// Ping implements storage.Store
func (s *Store) Ping(context.Context) error { return nil }

// Close implements storage.Store
func (s *Store) Close() error { return nil }

// CreateInvestigation implements storage.InvestigationStore
func (s *Store) CreateInvestigation(_ context.Context, inv *models.Investigation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	now := s.now()
	inv.CreatedAt, inv.UpdatedAt = now, now
	s.investigations[inv.ID] = *inv
	return nil
}

// GetInvestigation implements storage.InvestigationStore
func (s *Store) GetInvestigation(_ context.Context, id uuid.UUID) (*models.Investigation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.investigations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &inv, nil
}

// UpdateInvestigation implements storage.InvestigationStore
func (s *Store) UpdateInvestigation(_ context.Context, inv *models.Investigation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.investigations[inv.ID]; !ok {
		return storage.ErrNotFound
	}
	inv.UpdatedAt = s.now()
	s.investigations[inv.ID] = *inv
	return nil
}

// ListInvestigations implements storage.InvestigationStore, newest first
func (s *Store) ListInvestigations(_ context.Context, limit, offset int) ([]models.Investigation, error) {
	s.mu.RLock()
	out := make([]models.Investigation, 0, len(s.investigations))
	for _, inv := range s.investigations {
		out = append(out, inv)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []models.Investigation{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// CreateExecution implements storage.ExecutionStore
func (s *Store) CreateExecution(_ context.Context, exec *models.QueryExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exec.ID == uuid.Nil {
		exec.ID = uuid.New()
	}
	s.executions[exec.ID] = *exec
	s.execOrder = append(s.execOrder, exec.ID)
	return nil
}

// UpdateExecution implements storage.ExecutionStore
func (s *Store) UpdateExecution(_ context.Context, exec *models.QueryExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[exec.ID]; !ok {
		return storage.ErrNotFound
	}
	s.executions[exec.ID] = *exec
	return nil
}

// ListExecutions implements storage.ExecutionStore, in creation order
func (s *Store) ListExecutions(_ context.Context, investigationID uuid.UUID) ([]models.QueryExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.QueryExecution{}
	for _, id := range s.execOrder {
		if exec := s.executions[id]; exec.InvestigationID == investigationID {
			out = append(out, exec)
		}
	}
	return out, nil
}

// InsertAssets implements storage.FindingStore
func (s *Store) InsertAssets(_ context.Context, records []models.NormalizedAsset) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, r := range records {
		r.ComputeDedupKey()
		if !s.dedup["assets"].claim(r.InvestigationID, r.DedupKey) {
			continue
		}
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		s.assets = append(s.assets, r)
		inserted++
	}
	return inserted, nil
}

// InsertDebts implements storage.FindingStore
func (s *Store) InsertDebts(_ context.Context, records []models.NormalizedDebt) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, r := range records {
		r.ComputeDedupKey()
		if !s.dedup["debts"].claim(r.InvestigationID, r.DedupKey) {
			continue
		}
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		s.debts = append(s.debts, r)
		inserted++
	}
	return inserted, nil
}

// InsertLawsuits implements storage.FindingStore
func (s *Store) InsertLawsuits(_ context.Context, records []models.NormalizedLawsuit) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, r := range records {
		r.ComputeDedupKey()
		if !s.dedup["lawsuits"].claim(r.InvestigationID, r.DedupKey) {
			continue
		}
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		s.lawsuits = append(s.lawsuits, r)
		inserted++
	}
	return inserted, nil
}

// InsertCorporateLinks implements storage.FindingStore
func (s *Store) InsertCorporateLinks(_ context.Context, records []models.NormalizedCorporateLink) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, r := range records {
		r.ComputeDedupKey()
		if !s.dedup["links"].claim(r.InvestigationID, r.DedupKey) {
			continue
		}
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		s.links = append(s.links, r)
		inserted++
	}
	return inserted, nil
}

// Findings implements storage.FindingStore
func (s *Store) Findings(_ context.Context, investigationID uuid.UUID) (*storage.Findings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := &storage.Findings{
		Assets:         []models.NormalizedAsset{},
		Debts:          []models.NormalizedDebt{},
		Lawsuits:       []models.NormalizedLawsuit{},
		CorporateLinks: []models.NormalizedCorporateLink{},
	}
	for _, r := range s.assets {
		if r.InvestigationID == investigationID {
			f.Assets = append(f.Assets, r)
		}
	}
	for _, r := range s.debts {
		if r.InvestigationID == investigationID {
			f.Debts = append(f.Debts, r)
		}
	}
	for _, r := range s.lawsuits {
		if r.InvestigationID == investigationID {
			f.Lawsuits = append(f.Lawsuits, r)
		}
	}
	for _, r := range s.links {
		if r.InvestigationID == investigationID {
			f.CorporateLinks = append(f.CorporateLinks, r)
		}
	}
	return f, nil
}

// Totals implements storage.FindingStore
func (s *Store) Totals(_ context.Context, investigationID uuid.UUID) (storage.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := storage.Totals{Assets: decimal.Zero, Debts: decimal.Zero, Cost: decimal.Zero}
	for _, r := range s.assets {
		if r.InvestigationID == investigationID {
			t.Assets = t.Assets.Add(r.EstimatedValue)
		}
	}
	for _, r := range s.debts {
		if r.InvestigationID == investigationID && storage.CountsDebt(r.Status) {
			t.Debts = t.Debts.Add(r.Value)
		}
	}
	for _, exec := range s.executions {
		if exec.InvestigationID == investigationID {
			t.Cost = t.Cost.Add(exec.Cost)
		}
	}
	return t, nil
}

// GetProviderConfig implements storage.ProviderConfigStore
func (s *Store) GetProviderConfig(_ context.Context, id models.ProviderID) (*models.ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[id]
	if !ok {
		return storage.UnconfiguredProvider(id), nil
	}
	return copyConfig(cfg), nil
}

// ListProviderConfigs implements storage.ProviderConfigStore, ordered by id
func (s *Store) ListProviderConfigs(context.Context) ([]models.ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ProviderConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, *copyConfig(cfg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out, nil
}

// UpsertProviderConfig implements storage.ProviderConfigStore. Spend is kept
// from the existing row.
func (s *Store) UpsertProviderConfig(_ context.Context, cfg *models.ProviderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *copyConfig(*cfg)
	if existing, ok := s.configs[cfg.ProviderID]; ok {
		stored.MonthlySpent = existing.MonthlySpent
	}
	stored.UpdatedAt = s.now()
	s.configs[cfg.ProviderID] = stored

	cfg.MonthlySpent = stored.MonthlySpent
	cfg.UpdatedAt = stored.UpdatedAt
	return nil
}

// IncrementMonthlySpend implements storage.ProviderConfigStore
func (s *Store) IncrementMonthlySpend(_ context.Context, id models.ProviderID, amount decimal.Decimal) (*models.ProviderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[id]
	if !ok {
		cfg = *storage.UnconfiguredProvider(id)
	}
	cfg.MonthlySpent = cfg.MonthlySpent.Add(amount)
	cfg.UpdatedAt = s.now()
	s.configs[id] = cfg
	return copyConfig(cfg), nil
}

// ResetMonthlySpend implements storage.ProviderConfigStore
func (s *Store) ResetMonthlySpend(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, cfg := range s.configs {
		cfg.MonthlySpent = decimal.Zero
		cfg.UpdatedAt = s.now()
		s.configs[id] = cfg
		n++
	}
	return n, nil
}

// SaveComplianceLog implements storage.ComplianceStore
func (s *Store) SaveComplianceLog(_ context.Context, entry *models.ComplianceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.compliance = append(s.compliance, *entry)
	return nil
}

// ListComplianceLogs implements storage.ComplianceStore
func (s *Store) ListComplianceLogs(_ context.Context, investigationID uuid.UUID) ([]models.ComplianceLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.ComplianceLog{}
	for _, entry := range s.compliance {
		if entry.InvestigationID == investigationID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func copyConfig(cfg models.ProviderConfig) *models.ProviderConfig {
	if cfg.Credentials != nil {
		creds := make(models.Credentials, len(cfg.Credentials))
		for k, v := range cfg.Credentials {
			creds[k] = v
		}
		cfg.Credentials = creds
	}
	return &cfg
}
