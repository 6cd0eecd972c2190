package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/providers"
)

type stubProvider struct {
	id         models.ProviderID
	category   models.ProviderCategory
	queryTypes []models.QueryType
	configured bool
	err        error
	delay      time.Duration

	invalidations int
}

func (s *stubProvider) ID() models.ProviderID { return s.id }
func (s *stubProvider) Name() string { return string(s.id) }
func (s *stubProvider) Category() models.ProviderCategory { return s.category }
func (s *stubProvider) QueryTypes() []models.QueryType { return s.queryTypes }
func (s *stubProvider) Supports(models.QueryType) bool { return true }
func (s *stubProvider) InvalidateConfig() { s.invalidations++ }
func (s *stubProvider) Execute(context.Context, models.ProviderQuery) *models.ProviderResult {
	return &models.ProviderResult{Success: true}
}
func (s *stubProvider) EstimateCost(context.Context, models.QueryType) decimal.Decimal {
	return decimal.Zero
}
func (s *stubProvider) RateLimitStatus(context.Context) models.RateLimitInfo {
	return models.RateLimitInfo{Provider: s.id}
}

func (s *stubProvider) IsConfigured(ctx context.Context) (bool, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return s.configured, s.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func sample() []providers.Provider {
	return []providers.Provider{
		&stubProvider{id: models.ProviderReceitaFederal, category: models.CategoryGoverno, queryTypes: []models.QueryType{models.QueryCNPJ}, configured: true},
		&stubProvider{id: models.ProviderDatajud, category: models.CategoryJudicial, queryTypes: []models.QueryType{models.QueryProcesso}},
		&stubProvider{id: models.ProviderEscavador, category: models.CategoryJudicial, queryTypes: []models.QueryType{models.QueryProcesso}, configured: true},
		&stubProvider{id: models.ProviderSerasa, category: models.CategoryCredito, queryTypes: []models.QueryType{models.QueryScoreCredito}, err: errors.New("db down")},
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	list := append(sample(), &stubProvider{id: models.ProviderDatajud})

	_, err := New(list, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATAJUD")
}

func TestNew_RejectsNil(t *testing.T) {
	_, err := New([]providers.Provider{nil}, quietLogger())
	assert.Error(t, err)
}

func TestGetAndLookup(t *testing.T) {
	r, err := New(sample(), quietLogger())
	require.NoError(t, err)

	p, ok := r.Get(models.ProviderDatajud)
	require.True(t, ok)
	assert.Equal(t, models.ProviderDatajud, p.ID())

	_, ok = r.Get(models.ProviderMapBiomas)
	assert.False(t, ok)

	_, err = r.Lookup(models.ProviderMapBiomas)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestAllKeepsOrder(t *testing.T) {
	r, err := New(sample(), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, []models.ProviderID{
		models.ProviderReceitaFederal, models.ProviderDatajud, models.ProviderEscavador, models.ProviderSerasa,
	}, r.IDs())

	all := r.All()
	all[0] = nil
	assert.NotNil(t, r.All()[0])
}

func TestByCategory(t *testing.T) {
	r, err := New(sample(), quietLogger())
	require.NoError(t, err)

	judicial := r.ByCategory(models.CategoryJudicial)
	require.Len(t, judicial, 2)
	assert.Equal(t, models.ProviderDatajud, judicial[0].ID())
	assert.Equal(t, models.ProviderEscavador, judicial[1].ID())

	assert.Empty(t, r.ByCategory(models.CategorySatelite))
}

func TestConfigured_ExcludesFailingAndSlowChecks(t *testing.T) {
	list := append(sample(), &stubProvider{id: models.ProviderDetran, configured: true, delay: time.Second})
	r, err := New(list, quietLogger())
	require.NoError(t, err)
	r = r.WithCheckTimeout(50 * time.Millisecond)

	configured := r.Configured(context.Background())
	ids := make([]models.ProviderID, 0, len(configured))
	for _, p := range configured {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []models.ProviderID{models.ProviderReceitaFederal, models.ProviderEscavador}, ids)
}

func TestInfosAndCatalogue(t *testing.T) {
	r, err := New(sample(), quietLogger())
	require.NoError(t, err)

	infos := r.Infos(context.Background())
	require.Len(t, infos, 4)
	assert.True(t, infos[0].Configured)
	assert.False(t, infos[1].Configured)
	assert.False(t, infos[3].Configured)

	cat := r.Catalogue()
	assert.Equal(t, []models.QueryType{models.QueryProcesso}, cat[models.ProviderEscavador])
}

func TestInvalidateConfigsReachesEveryProvider(t *testing.T) {
	list := sample()
	reg, err := New(list, quietLogger())
	require.NoError(t, err)

	reg.InvalidateConfigs()
	reg.InvalidateConfigs()

	for _, p := range list {
		assert.Equal(t, 2, p.(*stubProvider).invalidations, p.ID())
	}
}
