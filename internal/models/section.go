package models

// SectionName is drawn from a controlled vocabulary of document parts.
type SectionName string

const (
	SectionInicio        SectionName = "INICIO"
	SectionObjetivo      SectionName = "OBJETIVO"
	SectionAlcance       SectionName = "ALCANCE"
	SectionRequisitos    SectionName = "REQUISITOS"
	SectionMateriales    SectionName = "MATERIALES"
	SectionEquipos       SectionName = "EQUIPOS"
	SectionProcedimiento SectionName = "PROCEDIMIENTO"
	SectionCalculos      SectionName = "CALCULOS"
	SectionResultados    SectionName = "RESULTADOS"
	SectionTabla         SectionName = "TABLA"
	SectionFigura        SectionName = "FIGURA"
	SectionPrecauciones  SectionName = "PRECAUCIONES"
	SectionReferencias   SectionName = "REFERENCIAS"
	SectionFin           SectionName = "FIN"
	SectionUnknown       SectionName = "UNKNOWN"
)

// Section is a named logical partition of a document. Blocks keep document order;
// narrative blocks hold the section's lines and table blocks sit where they appeared.
type Section struct {
	Name   SectionName `json:"name"`
	Index  int         `json:"index"`
	Blocks []Block     `json:"blocks"`
}

// Empty reports whether the section has no content.
func (s *Section) Empty() bool {
	for _, b := range s.Blocks {
		if b.IsTable() || len(b.Text) > 0 {
			return false
		}
	}
	return true
}
