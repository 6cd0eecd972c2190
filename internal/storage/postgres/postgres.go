// Package postgres implements storage.Store on PostgreSQL through gorm
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nexconsult/investigacao-api/internal/config"
	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// insertBatchSize bounds the rows per INSERT statement
const insertBatchSize = 100

// Store wraps the gorm connection
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// Open connects to PostgreSQL, configures the pool and optionally migrates
func Open(cfg config.DatabaseConfig, logger *logrus.Logger) (*Store, error) {
	logLevel := gormlogger.Silent
	if logger != nil && logger.IsLevelEnabled(logrus.DebugLevel) {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := &Store{db: db, logger: logger}
	if cfg.AutoMigrate {
		if err := s.AutoMigrate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB wraps an existing gorm connection
func NewWithDB(db *gorm.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// AutoMigrate creates or updates every table
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(
		&models.Investigation{},
		&models.QueryExecution{},
		&models.NormalizedAsset{},
		&models.NormalizedDebt{},
		&models.NormalizedLawsuit{},
		&models.NormalizedCorporateLink{},
		&models.ProviderConfig{},
		&models.ComplianceLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Ping implements storage.Store
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close implements storage.Store
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// CreateInvestigation implements storage.InvestigationStore
func (s *Store) CreateInvestigation(ctx context.Context, inv *models.Investigation) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(inv).Error
}

// GetInvestigation implements storage.InvestigationStore
func (s *Store) GetInvestigation(ctx context.Context, id uuid.UUID) (*models.Investigation, error) {
	var inv models.Investigation
	if err := s.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

// UpdateInvestigation implements storage.InvestigationStore
func (s *Store) UpdateInvestigation(ctx context.Context, inv *models.Investigation) error {
	res := s.db.WithContext(ctx).Model(inv).Select("*").Omit("created_at").Updates(inv)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListInvestigations implements storage.InvestigationStore, newest first
func (s *Store) ListInvestigations(ctx context.Context, limit, offset int) ([]models.Investigation, error) {
	var out []models.Investigation
	q := s.db.WithContext(ctx).Order("created_at DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CreateExecution implements storage.ExecutionStore
func (s *Store) CreateExecution(ctx context.Context, exec *models.QueryExecution) error {
	if exec.ID == uuid.Nil {
		exec.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(exec).Error
}

// UpdateExecution implements storage.ExecutionStore
func (s *Store) UpdateExecution(ctx context.Context, exec *models.QueryExecution) error {
	res := s.db.WithContext(ctx).Model(exec).Select("*").Updates(exec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListExecutions implements storage.ExecutionStore
func (s *Store) ListExecutions(ctx context.Context, investigationID uuid.UUID) ([]models.QueryExecution, error) {
	var out []models.QueryExecution
	err := s.db.WithContext(ctx).
		Where("investigation_id = ?", investigationID).
		Order("started_at ASC").
		Find(&out).Error
	return out, err
}

// insertIgnoringDuplicates relies on the (investigation_id, dedup_key) unique
// index; conflicting rows are skipped
func insertIgnoringDuplicates[T any](ctx context.Context, db *gorm.DB, records []T) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&records, insertBatchSize)
	return int(res.RowsAffected), res.Error
}

// InsertAssets implements storage.FindingStore
func (s *Store) InsertAssets(ctx context.Context, records []models.NormalizedAsset) (int, error) {
	for i := range records {
		records[i].ComputeDedupKey()
		if records[i].ID == uuid.Nil {
			records[i].ID = uuid.New()
		}
	}
	return insertIgnoringDuplicates(ctx, s.db, records)
}

// InsertDebts implements storage.FindingStore
func (s *Store) InsertDebts(ctx context.Context, records []models.NormalizedDebt) (int, error) {
	for i := range records {
		records[i].ComputeDedupKey()
		if records[i].ID == uuid.Nil {
			records[i].ID = uuid.New()
		}
	}
	return insertIgnoringDuplicates(ctx, s.db, records)
}

// InsertLawsuits implements storage.FindingStore
func (s *Store) InsertLawsuits(ctx context.Context, records []models.NormalizedLawsuit) (int, error) {
	for i := range records {
		records[i].ComputeDedupKey()
		if records[i].ID == uuid.Nil {
			records[i].ID = uuid.New()
		}
	}
	return insertIgnoringDuplicates(ctx, s.db, records)
}

// InsertCorporateLinks implements storage.FindingStore
func (s *Store) InsertCorporateLinks(ctx context.Context, records []models.NormalizedCorporateLink) (int, error) {
	for i := range records {
		records[i].ComputeDedupKey()
		if records[i].ID == uuid.Nil {
			records[i].ID = uuid.New()
		}
	}
	return insertIgnoringDuplicates(ctx, s.db, records)
}

// Findings implements storage.FindingStore
func (s *Store) Findings(ctx context.Context, investigationID uuid.UUID) (*storage.Findings, error) {
	f := &storage.Findings{
		Assets:         []models.NormalizedAsset{},
		Debts:          []models.NormalizedDebt{},
		Lawsuits:       []models.NormalizedLawsuit{},
		CorporateLinks: []models.NormalizedCorporateLink{},
	}
	db := s.db.WithContext(ctx)
	where := "investigation_id = ?"

	if err := db.Where(where, investigationID).Find(&f.Assets).Error; err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	if err := db.Where(where, investigationID).Find(&f.Debts).Error; err != nil {
		return nil, fmt.Errorf("load debts: %w", err)
	}
	if err := db.Where(where, investigationID).Find(&f.Lawsuits).Error; err != nil {
		return nil, fmt.Errorf("load lawsuits: %w", err)
	}
	if err := db.Where(where, investigationID).Find(&f.CorporateLinks).Error; err != nil {
		return nil, fmt.Errorf("load corporate links: %w", err)
	}
	return f, nil
}

// Totals implements storage.FindingStore with SUM aggregates
func (s *Store) Totals(ctx context.Context, investigationID uuid.UUID) (storage.Totals, error) {
	var t storage.Totals
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.NormalizedAsset{}).
		Select("COALESCE(SUM(estimated_value), 0)").
		Where("investigation_id = ?", investigationID).
		Row().Scan(&t.Assets); err != nil {
		return t, fmt.Errorf("sum assets: %w", err)
	}
	if err := db.Model(&models.NormalizedDebt{}).
		Select("COALESCE(SUM(value), 0)").
		Where("investigation_id = ? AND status <> ?", investigationID, models.DebtNegociada).
		Row().Scan(&t.Debts); err != nil {
		return t, fmt.Errorf("sum debts: %w", err)
	}
	if err := db.Model(&models.QueryExecution{}).
		Select("COALESCE(SUM(cost), 0)").
		Where("investigation_id = ?", investigationID).
		Row().Scan(&t.Cost); err != nil {
		return t, fmt.Errorf("sum cost: %w", err)
	}
	return t, nil
}

// GetProviderConfig implements storage.ProviderConfigStore
func (s *Store) GetProviderConfig(ctx context.Context, id models.ProviderID) (*models.ProviderConfig, error) {
	var cfg models.ProviderConfig
	err := s.db.WithContext(ctx).First(&cfg, "provider_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.UnconfiguredProvider(id), nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListProviderConfigs implements storage.ProviderConfigStore
func (s *Store) ListProviderConfigs(ctx context.Context) ([]models.ProviderConfig, error) {
	var out []models.ProviderConfig
	err := s.db.WithContext(ctx).Order("provider_id").Find(&out).Error
	return out, err
}

// UpsertProviderConfig implements storage.ProviderConfigStore. Monthly spend
// is never overwritten by a configuration change.
func (s *Store) UpsertProviderConfig(ctx context.Context, cfg *models.ProviderConfig) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"credentials", "base_url", "is_active", "is_configured", "monthly_budget",
			"cost_per_query", "rate_limit_per_minute", "rate_limit_per_day", "updated_at",
		}),
	}).Create(cfg).Error
}

// IncrementMonthlySpend implements storage.ProviderConfigStore. The
// increment is a single INSERT ... ON CONFLICT DO UPDATE so concurrent calls
// serialize on the row; a provider without a row gets an unconfigured one.
func (s *Store) IncrementMonthlySpend(ctx context.Context, id models.ProviderID, amount decimal.Decimal) (*models.ProviderConfig, error) {
	var cfg models.ProviderConfig
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := storage.UnconfiguredProvider(id)
		row.MonthlySpent = amount
		row.UpdatedAt = time.Now().UTC()

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"monthly_spent": gorm.Expr("provider_configs.monthly_spent + EXCLUDED.monthly_spent"),
				"updated_at":    gorm.Expr("EXCLUDED.updated_at"),
			}),
		}).Create(row).Error
		if err != nil {
			return err
		}
		return tx.First(&cfg, "provider_id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResetMonthlySpend implements storage.ProviderConfigStore
func (s *Store) ResetMonthlySpend(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.ProviderConfig{}).
		Where("1 = 1").
		Updates(map[string]interface{}{
			"monthly_spent": decimal.Zero,
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// SaveComplianceLog implements storage.ComplianceStore
func (s *Store) SaveComplianceLog(ctx context.Context, entry *models.ComplianceLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

// ListComplianceLogs implements storage.ComplianceStore
func (s *Store) ListComplianceLogs(ctx context.Context, investigationID uuid.UUID) ([]models.ComplianceLog, error) {
	var out []models.ComplianceLog
	err := s.db.WithContext(ctx).
		Where("investigation_id = ?", investigationID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
