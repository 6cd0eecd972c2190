package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/nexconsult/investigacao-api/internal/models"
)

func testOptions() Options {
	return Options{HTTPTimeout: 2 * time.Second, RequestsPerSecond: 100}
}

func configFor(server *httptest.Server, creds models.Credentials) *models.ProviderConfig {
	return &models.ProviderConfig{
		BaseURL:      server.URL,
		Credentials:  creds,
		IsActive:     true,
		IsConfigured: true,
	}
}

func TestAll_CatalogueIsStable(t *testing.T) {
	sources := All(testOptions())
	require.Len(t, sources, 13)

	seen := make(map[models.ProviderID]bool)
	for _, s := range sources {
		assert.False(t, seen[s.ID()], "duplicate provider %s", s.ID())
		seen[s.ID()] = true
		assert.NotEmpty(t, s.Name())
		assert.NotEmpty(t, s.QueryTypes(), "%s answers nothing", s.ID())
	}

	assert.Equal(t, models.ProviderReceitaFederal, sources[0].ID())
	assert.Equal(t, models.ProviderMapBiomas, sources[len(sources)-1].ID())
}

func TestAll_QueryTypesReturnsCopy(t *testing.T) {
	s := NewSerasa(testOptions())
	qts := s.QueryTypes()
	qts[0] = models.QueryUsoSolo

	assert.Equal(t, models.QueryScoreCredito, s.QueryTypes()[0])
}

func TestAll_GenerateMockForEveryDeclaredType(t *testing.T) {
	for _, s := range All(testOptions()) {
		for _, qt := range s.QueryTypes() {
			target := models.TargetPF
			doc := "52998224725"
			if qt == models.QueryCNPJ || qt == models.QueryQuadroSocietario {
				target, doc = models.TargetPJ, "11222333000181"
			}
			res := s.GenerateMock(models.NewProviderQuery(qt, doc, target, nil))
			require.NotNil(t, res)
			assert.True(t, res.Success, "%s/%s", s.ID(), qt)
			assert.True(t, res.IsMock)
			assert.True(t, res.Cost.IsZero())
		}
	}
}

func TestClientTuneFollowsConfiguredCeiling(t *testing.T) {
	c := NewClient(time.Second, 5, 5)

	c.Tune(&models.ProviderConfig{RateLimitPerMinute: 60})
	assert.Equal(t, rate.Limit(1), c.limiter.Limit())
	assert.Equal(t, 5, c.limiter.Burst())

	// raising the ceiling takes effect, not only lowering it
	c.Tune(&models.ProviderConfig{RateLimitPerMinute: 600})
	assert.Equal(t, rate.Limit(10), c.limiter.Limit())

	c.Tune(&models.ProviderConfig{RateLimitPerMinute: 3})
	assert.Equal(t, rate.Limit(0.05), c.limiter.Limit())
	assert.Equal(t, 3, c.limiter.Burst())

	c.Tune(&models.ProviderConfig{})
	assert.Equal(t, rate.Limit(5), c.limiter.Limit())
	assert.Equal(t, 5, c.limiter.Burst())

	c.Tune(&models.ProviderConfig{RateLimitPerMinute: 30})
	c.Tune(nil)
	assert.Equal(t, rate.Limit(5), c.limiter.Limit())
}

func TestBaseURLOverride(t *testing.T) {
	opts := testOptions()
	opts.BaseURLs = map[string]string{string(models.ProviderDetran): "http://detran.local/"}
	d := NewDetran(opts)

	assert.Equal(t, "http://detran.local/x", d.endpoint(nil, "/x", nil))
	assert.Equal(t, "http://cfg.local/x", d.endpoint(&models.ProviderConfig{BaseURL: "http://cfg.local/"}, "/x", nil))
}

func TestSerasa_Debts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pendencias", r.URL.Path)
		assert.Equal(t, "52998224725", r.URL.Query().Get("documento"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pendencias_financeiras":[
			{"credor":"Banco Alfa","contrato":"123","natureza":"cartao credito","valor":"1500.75","status":"ATIVA","data_ocorrencia":"2024-01-10"},
			{"credor":"Financeira Beta","contrato":"456","natureza":"","valor":320,"status":"NEGOCIADA","data_ocorrencia":"2023-05-02"}
		]}`))
	}))
	defer server.Close()

	s := NewSerasa(testOptions())
	query := models.NewProviderQuery(models.QueryDividas, "529.982.247-25", models.TargetPF, nil)
	res, err := s.ExecuteReal(context.Background(), configFor(server, models.Credentials{"token": "secret"}), query)
	require.NoError(t, err)

	require.True(t, res.Success)
	require.Len(t, res.Debts, 2)
	assert.Equal(t, "Banco Alfa", res.Debts[0].Creditor)
	assert.Equal(t, "CARTAO_CREDITO", res.Debts[0].DebtType)
	assert.True(t, decimal.RequireFromString("1500.75").Equal(res.Debts[0].Value))
	assert.Equal(t, models.DebtAtiva, res.Debts[0].Status)
	assert.Equal(t, "PENDENCIA_FINANCEIRA", res.Debts[1].DebtType)
	assert.Equal(t, models.DebtNegociada, res.Debts[1].Status)
	assert.NotNil(t, res.Assets)
	assert.NotEmpty(t, res.RawResponse)
}

func TestSerasa_UnsupportedQuery(t *testing.T) {
	s := NewSerasa(testOptions())
	_, err := s.ExecuteReal(context.Background(), &models.ProviderConfig{BaseURL: "http://unused"},
		models.NewProviderQuery(models.QueryVeiculos, "52998224725", models.TargetPF, nil))
	assert.Error(t, err)
}

func TestBoaVista_ScorePostsProduct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key-1", r.Header.Get("X-Api-Key"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, string(models.QueryScoreCredito), body["produto"])
		_, _ = w.Write([]byte(`{"score_positivo":712,"debitos":[]}`))
	}))
	defer server.Close()

	b := NewBoaVista(testOptions())
	res, err := b.ExecuteReal(context.Background(), configFor(server, models.Credentials{"api_key": "key-1"}),
		models.NewProviderQuery(models.QueryScoreCredito, "52998224725", models.TargetPF, nil))
	require.NoError(t, err)
	assert.Equal(t, 712, res.Data["score"])
}

func TestCenprot_NotFoundIsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"mensagem":"nada consta"}`))
	}))
	defer server.Close()

	c := NewCenprot(testOptions())
	res, err := c.ExecuteReal(context.Background(), configFor(server, nil),
		models.NewProviderQuery(models.QueryProtestos, "11222333000181", models.TargetPJ, nil))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Debts)
	assert.NotNil(t, res.Debts)
	assert.Equal(t, 0, res.RecordCount())
}

func TestCenprot_InheritsNotaryLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/protestos/11222333000181", r.URL.Path)
		_, _ = w.Write([]byte(`{"cartorios":[{"nome":"1o Tabelionato","cidade":"Curitiba","uf":"PR",
			"titulos":[{"apresentante":"Fornecedor X","valor":"999.90","data_protesto":"2024-02-01"}]}]}`))
	}))
	defer server.Close()

	c := NewCenprot(testOptions())
	res, err := c.ExecuteReal(context.Background(), configFor(server, nil),
		models.NewProviderQuery(models.QueryProtestos, "11222333000181", models.TargetPJ, nil))
	require.NoError(t, err)
	require.Len(t, res.Debts, 1)
	assert.Equal(t, models.DebtProtestada, res.Debts[0].Status)
	assert.Contains(t, res.Debts[0].Description, "1o Tabelionato Curitiba/PR")
}

func TestDetran_ServerErrorIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	d := NewDetran(testOptions())
	_, err := d.ExecuteReal(context.Background(), configFor(server, nil),
		models.NewProviderQuery(models.QueryVeiculos, "52998224725", models.TargetPF, nil))
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Contains(t, statusErr.Error(), "upstream down")
}

func TestDetran_VehiclesWithRestrictions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"veiculos":[
			{"placa":"ABC1D23","marca_modelo":"VW/GOL","ano_modelo":2019,"valor_fipe":"45000","restricoes":["ALIENACAO FIDUCIARIA"]},
			{"placa":"XYZ9K87","marca_modelo":"FIAT/UNO","ano_modelo":2015,"valor_fipe":"21000.50","restricoes":[]}
		]}`))
	}))
	defer server.Close()

	d := NewDetran(testOptions())
	res, err := d.ExecuteReal(context.Background(), configFor(server, nil),
		models.NewProviderQuery(models.QueryVeiculos, "52998224725", models.TargetPF, nil))
	require.NoError(t, err)
	require.Len(t, res.Assets, 2)
	assert.True(t, res.Assets[0].HasRestriction)
	assert.Contains(t, res.Assets[0].Description, "ALIENACAO FIDUCIARIA")
	assert.False(t, res.Assets[1].HasRestriction)
	assert.Equal(t, models.AssetVeiculo, res.Assets[1].Category)
}

func TestIncraSigef_ValueFromArea(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"parcelas":[{"codigo_parcela":"abc-1","denominacao":"Fazenda Boa Vista",
			"area_ha":"10.5","municipio":"Sorriso","uf":"MT","situacao":"CERTIFICADA","valor_terra_nua_ha":"1000"}]}`))
	}))
	defer server.Close()

	inc := NewIncraSigef(testOptions())
	res, err := inc.ExecuteReal(context.Background(), configFor(server, nil),
		models.NewProviderQuery(models.QueryImoveisRurais, "52998224725", models.TargetPF, nil))
	require.NoError(t, err)
	require.Len(t, res.Assets, 1)
	assert.Equal(t, "10500.00", res.Assets[0].EstimatedValue.StringFixed(2))
	assert.False(t, res.Assets[0].HasRestriction)
}

func TestDatajud_TribunalAlias(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api_publica_tjsp/_search", r.URL.Path)
		assert.Equal(t, "APIKey k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_source":{
			"numeroProcesso":"00012345620238260100","tribunal":"TJSP",
			"classe":{"nome":"Execucao"},"assuntos":[{"nome":"Cobranca"}],
			"valorCausa":450000,
			"partes":[{"documento":"52998224725","polo":"PASSIVO"}],
			"movimentos":[{"nome":"Penhora online deferida"}]}}]}}`))
	}))
	defer server.Close()

	d := NewDatajud(testOptions())
	query := models.NewProviderQuery(models.QueryProcesso, "52998224725", models.TargetPF, map[string]string{"tribunal": "TJSP"})
	res, err := d.ExecuteReal(context.Background(), configFor(server, models.Credentials{"api_key": "k"}), query)
	require.NoError(t, err)
	require.Len(t, res.Lawsuits, 1)

	l := res.Lawsuits[0]
	assert.Equal(t, models.RoleReu, l.Role)
	assert.Equal(t, "Cobranca", l.Subject)
	assert.Equal(t, models.RelevanceAlta, l.Relevance)
	assert.True(t, l.HasAssetFreeze)
}

const jusbrasilPage = `<html><body>
<article class="lawsuit-card">
  <span class="lawsuit-number">0001234-56.2023.8.26.0100</span>
  <span class="lawsuit-court">TJSP</span>
  <span class="lawsuit-subject">Execucao de Titulo Extrajudicial</span>
  <span class="lawsuit-role" data-pole="AUTOR"></span>
  <span class="lawsuit-value">R$ 75.000,00</span>
  <ul class="lawsuit-events"><li>Citacao</li><li>Arresto de bens</li></ul>
</article>
<article class="lawsuit-card">
  <span class="lawsuit-number"></span>
</article>
<article class="lawsuit-card">
  <span class="lawsuit-number">0009999-11.2022.5.02.0001</span>
  <span class="lawsuit-court">TRT2</span>
  <span class="lawsuit-value">1.200,00</span>
</article>
</body></html>`

func TestParseJusbrasilLawsuits(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(jusbrasilPage))
	require.NoError(t, err)

	lawsuits := ParseJusbrasilLawsuits(doc)
	require.Len(t, lawsuits, 2)

	assert.Equal(t, "0001234-56.2023.8.26.0100", lawsuits[0].CaseNumber)
	assert.Equal(t, models.RoleAutor, lawsuits[0].Role)
	assert.Equal(t, "75000.00", lawsuits[0].ClaimValue.StringFixed(2))
	assert.Equal(t, models.RelevanceMedia, lawsuits[0].Relevance)
	assert.True(t, lawsuits[0].HasAssetFreeze)

	assert.Equal(t, models.RoleReu, lawsuits[1].Role)
	assert.Equal(t, models.RelevanceBaixa, lawsuits[1].Relevance)
	assert.False(t, lawsuits[1].HasAssetFreeze)
}

func TestJusbrasil_ExecuteReal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/consulta-processual/busca", r.URL.Path)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(jusbrasilPage))
	}))
	defer server.Close()

	j := NewJusbrasil(testOptions())
	res, err := j.ExecuteReal(context.Background(), configFor(server, nil),
		models.NewProviderQuery(models.QueryProcesso, "52998224725", models.TargetPF, nil))
	require.NoError(t, err)
	assert.Len(t, res.Lawsuits, 2)
	assert.Equal(t, 2, res.Data["total"])
}

func TestParseMoney(t *testing.T) {
	cases := map[string]string{
		"1234.56":      "1234.56",
		"1.234,56":     "1234.56",
		"R$ 1.234,56":  "1234.56",
		"  R$ 10,00 ":  "10.00",
		"":             "0.00",
		"not a number": "0.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, parseMoney(in).StringFixed(2), "input %q", in)
	}
}

func TestMapBiomas_DominantUse(t *testing.T) {
	area := mapbiomasArea{Coverage: map[string]decimal.Decimal{
		"PASTAGEM": decimal.NewFromInt(40),
		"SOJA":     decimal.NewFromInt(55),
		"FLORESTA": decimal.NewFromInt(5),
	}}
	assert.Equal(t, "SOJA", area.dominantUse())
	assert.Equal(t, "", mapbiomasArea{}.dominantUse())
}
