package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/labia/internal/models"
)

func TestExtract_documentCode(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		name     string
		text     string
		fileName string
		want     string
	}{
		{"compact on first page", "INSTRUCTIVO DE LABORATORIO\nCódigo: LLCCI05\n1. OBJETIVO", "instructivo.pdf", "LLCCI05"},
		{"hyphenated", "Código LL-CCI-05 Rev. 02", "x.pdf", "LLCCI05"},
		{"roman suffix", "Documento LL-CI-I-12", "x.pdf", "LLCII12"},
		{"lower case", "código llcii20", "x.pdf", "LLCII20"},
		{"generic hyphenated", "Procedimiento PR-LAB-07 para agregados", "x.pdf", "PRLAB07"},
		{"standards are not codes", "Según ASTM C109 y NMX-C-083 ISO 9001", "sin-codigo.pdf", ""},
		{"file name fallback", "Texto sin código", "LLCCI02_resistencia.pdf", "LLCCI02"},
		{"nothing", "Texto sin código", "notas.pdf", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := e.Extract(tt.text, tt.fileName)
			assert.Equal(t, tt.want, md.DocumentCode)
			assert.Equal(t, tt.want == "", md.LowConfidence)
		})
	}
}

func TestExtract_standards(t *testing.T) {
	e := NewExtractor()
	text := "Referencias: ASTM C109, ASTM C 39-21, astm c109, EN 12390-3 y NMX-C-083. " +
		"Ver también ISO 9001 en 2 horas."
	md := e.Extract(text, "LLCCI05.pdf")
	assert.Equal(t, []string{"ASTM C109", "ASTM C39-21", "EN 12390-3", "ISO 9001", "NMX-C-083"}, md.ReferencedStandards)
}

func TestExtract_revision(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		text string
		want string
	}{
		{"Rev. 02", "rev02"},
		{"rev3", "rev03"},
		{"Revisión: 11", "rev11"},
		{"Edición 1", "rev01"},
		{"Fecha de revisión: 12/03/2023", ""},
		{"Medir el revenimiento 10 cm", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Extract(tt.text, "a.pdf").Revision, tt.text)
	}
}

func TestExtract_issueDate(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		text string
		want string
	}{
		{"Fecha: 15/03/2023", "2023-03-15"},
		{"Fecha de emisión: 01-12-23", "2023-12-01"},
		{"date: 2022-07-04", "2022-07-04"},
		{"Emitido 2021-05-30", "2021-05-30"},
		{"Vigente desde 5/6/2020", "2020-06-05"},
		{"Fecha: 31/02/2023", ""},
		{"sin fecha", ""},
	}
	for _, tt := range tests {
		md := e.Extract(tt.text, "a.pdf")
		assert.Equal(t, tt.want, md.IssueDateString(), tt.text)
	}
}

func TestExtract_technicalVariables(t *testing.T) {
	e := NewExtractor()
	md := e.Extract("Se mide el pH y la Resistencia; la gravedad especifica y el contenido de aire.", "a.pdf")
	assert.Equal(t, []string{"pH", "gravedad específica", "resistencia", "contenido de aire"}, md.TechnicalVariables)
}

func TestExtract_fixedFields(t *testing.T) {
	md := NewExtractor().Extract("", "/data/raw/LLCCI05.pdf")
	assert.Equal(t, "LLCCI05.pdf", md.SourceFile)
	assert.Equal(t, DocumentType, md.DocumentType)
	assert.Empty(t, md.ReferencedStandards)
	assert.Nil(t, md.IssueDate)
}

func TestExtractDocument_readsBoilerplateAndTables(t *testing.T) {
	doc := &models.CleanedDocument{
		Path:        "/data/raw/resistencia.pdf",
		FileName:    "resistencia.pdf",
		PageCount:   3,
		Boilerplate: []string{"Instructivo LLCCI05 Rev. 02"},
		Blocks: []models.Block{
			{Kind: models.BlockText, Page: 1, Text: "1. OBJETIVO\nDeterminar la resistencia."},
			{Kind: models.BlockTable, Page: 2, Text: "| Norma | Uso |\n| --- | --- |\n| ASTM C39 | Cilindros |", TableIndex: 1},
		},
	}
	md := NewExtractor().ExtractDocument(doc)
	require.NotNil(t, md)
	assert.Equal(t, "LLCCI05", md.DocumentCode)
	assert.Equal(t, "rev02", md.Revision)
	assert.Equal(t, []string{"ASTM C39"}, md.ReferencedStandards)
	assert.False(t, md.LowConfidence)
}

func TestExtract_customCodeRules(t *testing.T) {
	e := NewExtractor(WithCodeRules())
	md := e.Extract("Código LLCCI05", "LLCCI05.pdf")
	assert.Empty(t, md.DocumentCode)
	assert.True(t, md.LowConfidence)
}
