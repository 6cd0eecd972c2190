// Package adapters contains the thin HTTP integrations for each provider.
// Adapters only perform the real call and map the payload into normalized
// records; configuration, limits, retries and fallback live in the runtime.
package adapters

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/providers/mock"
)

// Options configures every adapter
type Options struct {
	// HTTPTimeout bounds a single attempt
	HTTPTimeout time.Duration
	// RequestsPerSecond is the client-side smoothing rate per provider
	RequestsPerSecond float64
	// BaseURLs overrides default endpoints, keyed by provider id
	BaseURLs map[string]string
}

type base struct {
	id         models.ProviderID
	name       string
	category   models.ProviderCategory
	queryTypes []models.QueryType
	defaultURL string
	client     *Client
}

func newBase(opts Options, id models.ProviderID, name string, category models.ProviderCategory, defaultURL string, queryTypes ...models.QueryType) base {
	if override, ok := opts.BaseURLs[string(id)]; ok && override != "" {
		defaultURL = override
	}
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return base{
		id:         id,
		name:       name,
		category:   category,
		queryTypes: queryTypes,
		defaultURL: strings.TrimRight(defaultURL, "/"),
		client:     NewClient(timeout, opts.RequestsPerSecond, 5),
	}
}

func (b *base) ID() models.ProviderID { return b.id }

func (b *base) Name() string { return b.name }

func (b *base) Category() models.ProviderCategory { return b.category }

func (b *base) QueryTypes() []models.QueryType {
	out := make([]models.QueryType, len(b.queryTypes))
	copy(out, b.queryTypes)
	return out
}

// GenerateMock delegates to the shared synthetic data generator
func (b *base) GenerateMock(query models.ProviderQuery) *models.ProviderResult {
	return mock.Generate(b.id, query)
}

// endpoint joins the configured (or default) base URL with path and query
func (b *base) endpoint(cfg *models.ProviderConfig, path string, params url.Values) string {
	root := b.defaultURL
	if cfg != nil && cfg.BaseURL != "" {
		root = strings.TrimRight(cfg.BaseURL, "/")
	}
	u := root + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (b *base) prepare(cfg *models.ProviderConfig) *Client {
	b.client.Tune(cfg)
	return b.client
}

func (b *base) unsupported(query models.ProviderQuery) error {
	return fmt.Errorf("%s does not answer %s", b.id, query.QueryType)
}

// result builds a successful result carrying the raw payload. Data is the
// decoded top-level JSON object when the payload is one.
func result(raw []byte) *models.ProviderResult {
	res := &models.ProviderResult{Success: true, RawResponse: models.JSON(raw)}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err == nil {
		res.Data = data
	}
	res.EnsureCollections()
	return res
}

// empty is the result for "no records for this document"
func empty(raw []byte) *models.ProviderResult {
	res := &models.ProviderResult{Success: true, Data: map[string]interface{}{"total": 0}}
	if len(raw) > 0 && json.Valid(raw) {
		res.RawResponse = models.JSON(raw)
	}
	res.EnsureCollections()
	return res
}

// parseMoney accepts "1234.56", "1.234,56" and "R$ 1.234,56"
func parseMoney(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if s == "" {
		return decimal.Zero
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
