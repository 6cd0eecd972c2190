package adapters

import "github.com/nexconsult/investigacao-api/internal/providers"

var (
	_ providers.Source = (*ReceitaFederal)(nil)
	_ providers.Source = (*SerproCPF)(nil)
	_ providers.Source = (*Datajud)(nil)
	_ providers.Source = (*Escavador)(nil)
	_ providers.Source = (*Jusbrasil)(nil)
	_ providers.Source = (*Serasa)(nil)
	_ providers.Source = (*BoaVista)(nil)
	_ providers.Source = (*Cenprot)(nil)
	_ providers.Source = (*PGFN)(nil)
	_ providers.Source = (*Detran)(nil)
	_ providers.Source = (*ONRImoveis)(nil)
	_ providers.Source = (*IncraSigef)(nil)
	_ providers.Source = (*MapBiomas)(nil)
)

// All returns one instance of every adapter in declaration order. The order
// is the planner's tie-break when two providers share a priority.
func All(opts Options) []providers.Source {
	return []providers.Source{
		NewReceitaFederal(opts),
		NewSerproCPF(opts),
		NewDatajud(opts),
		NewEscavador(opts),
		NewJusbrasil(opts),
		NewSerasa(opts),
		NewBoaVista(opts),
		NewCenprot(opts),
		NewPGFN(opts),
		NewDetran(opts),
		NewONRImoveis(opts),
		NewIncraSigef(opts),
		NewMapBiomas(opts),
	}
}
