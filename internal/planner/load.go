package planner

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nexconsult/investigacao-api/internal/models"
)

// maxDepthFileSize bounds the override file
const maxDepthFileSize = 1 << 20

// Load returns the default depth map with tiers from the YAML file at path
// replacing their defaults. An empty path returns the defaults.
//
//	BASICA:
//	  providers:
//	    - provider: RECEITA_FEDERAL
//	      priority: 10
//	  query_types: [CONSULTA_CNPJ, CONSULTA_PROCESSO]
func Load(path string) (DepthProviderMap, error) {
	depths := DefaultDepthMap()
	if path == "" {
		return depths, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open depth map: %w", err)
	}
	defer f.Close()

	overrides, err := Decode(io.LimitReader(f, maxDepthFileSize))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for tier, plan := range overrides {
		depths[tier] = plan
	}
	return depths, nil
}

// Decode parses a YAML depth map and rejects unknown tiers
func Decode(r io.Reader) (DepthProviderMap, error) {
	var raw map[string]TierPlan
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return DepthProviderMap{}, nil
		}
		return nil, fmt.Errorf("decode depth map: %w", err)
	}

	out := make(DepthProviderMap, len(raw))
	for name, plan := range raw {
		tier, err := models.ParseDepthTier(name)
		if err != nil {
			return nil, err
		}
		out[tier] = plan
	}
	return out, nil
}
