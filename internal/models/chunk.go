package models

import (
	"strconv"
	"strings"
)

// Content types as stored in chunk metadata.
const (
	ContentTypeText  = "texto"
	ContentTypeTable = "tabla"
)

// Chunk is the unit of retrieval.
type Chunk struct {
	ID           string            `json:"id"`
	DocumentKey  string            `json:"document_key"`
	Index        int               `json:"chunk_index"`
	Text         string            `json:"text"`
	Section      SectionName       `json:"section_name"`
	TableFlag    bool              `json:"table_flag"`
	TableIndex   int               `json:"table_index,omitempty"`
	Page         int               `json:"page,omitempty"`
	ContentHash  string            `json:"content_hash"`
	Tokens       int               `json:"tokens"`
	Metadata     *DocumentMetadata `json:"document_metadata"`
	Measurements []Measurement     `json:"measurements,omitempty"`
	Embedding    []float32         `json:"-"`
}

// MetadataMap flattens the chunk and its document metadata into the key set consumed by the
// retrieval application.
func (c *Chunk) MetadataMap() map[string]interface{} {
	m := map[string]interface{}{
		"doc_key":        c.DocumentKey,
		"chunk_idx":      c.Index,
		"seccion":        string(c.Section),
		"tipo_contenido": ContentTypeText,
		"content_hash":   c.ContentHash,
	}
	if c.TableFlag {
		m["tipo_contenido"] = ContentTypeTable
		m["tabla_idx"] = c.TableIndex
	}
	if c.Page > 0 {
		m["page"] = c.Page
	}
	if md := c.Metadata; md != nil {
		m["codigo_documento"] = md.DocumentCode
		m["source"] = md.SourceFile
		m["tipo_documento"] = md.DocumentType
		m["low_confidence"] = md.LowConfidence
		if len(md.ReferencedStandards) > 0 {
			m["normas"] = strings.Join(md.ReferencedStandards, ", ")
		}
		if md.Revision != "" {
			m["revision"] = md.Revision
		}
		if d := md.IssueDateString(); d != "" {
			m["fecha"] = d
		}
		if len(md.TechnicalVariables) > 0 {
			m["variables_tecnicas"] = strings.Join(md.TechnicalVariables, ", ")
		}
	}
	if len(c.Measurements) > 0 {
		units := make([]string, 0, len(c.Measurements))
		for _, ms := range c.Measurements {
			units = append(units, strconv.FormatFloat(ms.NormalizedValue, 'f', 2, 64)+" "+ms.NormalizedUnit)
		}
		m["unidades_normalizadas"] = strings.Join(units, "; ")
	}
	return m
}
