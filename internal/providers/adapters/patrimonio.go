package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nexconsult/investigacao-api/internal/models"
)

// Detran queries state vehicle registries through the SENATRAN aggregation
type Detran struct{ base }

// NewDetran creates the DETRAN/SENATRAN adapter
func NewDetran(opts Options) *Detran {
	return &Detran{newBase(opts, models.ProviderDetran, "DETRAN / SENATRAN",
		models.CategoryPatrimonio, "https://wsdenatran.estaleiro.serpro.gov.br/v1",
		models.QueryVeiculos)}
}

type detranVehicle struct {
	Plate        string          `json:"placa"`
	Renavam      string          `json:"renavam"`
	Model        string          `json:"marca_modelo"`
	Year         int             `json:"ano_modelo"`
	FipeValue    decimal.Decimal `json:"valor_fipe"`
	Restrictions []string        `json:"restricoes"`
}

// ExecuteReal implements providers.Source
func (p *Detran) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	if query.QueryType != models.QueryVeiculos {
		return nil, p.unsupported(query)
	}

	var resp struct {
		Vehicles []detranVehicle `json:"veiculos"`
	}
	body, err := p.prepare(cfg).GetJSON(ctx, p.endpoint(cfg, "/proprietarios/"+query.TargetDocument+"/veiculos", nil),
		Bearer(cfg.Credential("token")), &resp)
	if errors.Is(err, ErrNotFound) {
		return empty(body), nil
	}
	if err != nil {
		return nil, err
	}

	res := result(body)
	for _, v := range resp.Vehicles {
		description := fmt.Sprintf("%s %d", v.Model, v.Year)
		if len(v.Restrictions) > 0 {
			description += " - " + strings.Join(v.Restrictions, ", ")
		}
		res.Assets = append(res.Assets, models.NormalizedAsset{
			Category:       models.AssetVeiculo,
			Description:    description,
			Identifier:     v.Plate,
			EstimatedValue: v.FipeValue,
			HasRestriction: len(v.Restrictions) > 0,
			IsSeizable:     true,
			RawPayload:     models.MustJSON(v),
		})
	}
	return res, nil
}

// ONRImoveis queries the national electronic real-estate registry (SAEC/ONR)
type ONRImoveis struct{ base }

// NewONRImoveis creates the ONR adapter
func NewONRImoveis(opts Options) *ONRImoveis {
	return &ONRImoveis{newBase(opts, models.ProviderONRImoveis, "ONR - Registro de Imóveis",
		models.CategoryPatrimonio, "https://api.registrodeimoveis.org.br/v1",
		models.QueryImoveis)}
}

type onrProperty struct {
	Registry     string          `json:"cartorio"`
	Matricula    string          `json:"matricula"`
	Address      string          `json:"endereco"`
	City         string          `json:"cidade"`
	UF           string          `json:"uf"`
	AssessedAt   decimal.Decimal `json:"valor_venal"`
	Encumbrances []string        `json:"onus"`
	FamilyHome   bool            `json:"bem_de_familia"`
}

// ExecuteReal implements providers.Source
func (p *ONRImoveis) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	if query.QueryType != models.QueryImoveis {
		return nil, p.unsupported(query)
	}

	var resp struct {
		Properties []onrProperty `json:"imoveis"`
	}
	params := url.Values{"cpf_cnpj": {query.TargetDocument}}
	if uf := query.Param("uf"); uf != "" {
		params.Set("uf", uf)
	}
	body, err := p.prepare(cfg).GetJSON(ctx, p.endpoint(cfg, "/pesquisa-bens", params),
		HeaderKey("X-Api-Key", cfg.Credential("api_key")), &resp)
	if errors.Is(err, ErrNotFound) {
		return empty(body), nil
	}
	if err != nil {
		return nil, err
	}

	res := result(body)
	for _, prop := range resp.Properties {
		res.Assets = append(res.Assets, models.NormalizedAsset{
			Category:       models.AssetImovel,
			Description:    fmt.Sprintf("Imóvel matrícula %s - %s, %s/%s", prop.Matricula, prop.Address, prop.City, prop.UF),
			Identifier:     prop.Registry + " " + prop.Matricula,
			EstimatedValue: prop.AssessedAt,
			HasRestriction: len(prop.Encumbrances) > 0,
			IsSeizable:     !prop.FamilyHome,
			RawPayload:     models.MustJSON(prop),
		})
	}
	return res, nil
}

// IncraSigef queries INCRA's land parcel certification system
type IncraSigef struct{ base }

// NewIncraSigef creates the INCRA SIGEF adapter
func NewIncraSigef(opts Options) *IncraSigef {
	return &IncraSigef{newBase(opts, models.ProviderIncraSigef, "INCRA - SIGEF",
		models.CategoryPatrimonio, "https://sigef.incra.gov.br/api",
		models.QueryImoveisRurais)}
}

type sigefParcel struct {
	Code       string          `json:"codigo_parcela"`
	Name       string          `json:"denominacao"`
	AreaHa     decimal.Decimal `json:"area_ha"`
	Municipio  string          `json:"municipio"`
	UF         string          `json:"uf"`
	Status     string          `json:"situacao"`
	ValuePerHa decimal.Decimal `json:"valor_terra_nua_ha"`
}

// ExecuteReal implements providers.Source
func (p *IncraSigef) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	if query.QueryType != models.QueryImoveisRurais {
		return nil, p.unsupported(query)
	}

	var resp struct {
		Parcels []sigefParcel `json:"parcelas"`
	}
	body, err := p.prepare(cfg).GetJSON(ctx, p.endpoint(cfg, "/detentores/"+query.TargetDocument+"/parcelas", nil),
		Bearer(cfg.Credential("token")), &resp)
	if errors.Is(err, ErrNotFound) {
		return empty(body), nil
	}
	if err != nil {
		return nil, err
	}

	res := result(body)
	for _, parcel := range resp.Parcels {
		status := strings.ToUpper(parcel.Status)
		res.Assets = append(res.Assets, models.NormalizedAsset{
			Category:       models.AssetImovelRural,
			Description:    fmt.Sprintf("%s - %s ha - %s/%s", parcel.Name, parcel.AreaHa.StringFixed(2), parcel.Municipio, parcel.UF),
			Identifier:     parcel.Code,
			EstimatedValue: parcel.AreaHa.Mul(parcel.ValuePerHa).Round(2),
			HasRestriction: status != "" && status != "CERTIFICADA",
			IsSeizable:     true,
			RawPayload:     models.MustJSON(parcel),
		})
	}
	return res, nil
}
