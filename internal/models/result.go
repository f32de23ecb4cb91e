package models

// SearchHit is a retrieved chunk with its citation metadata.
type SearchHit struct {
	ChunkID             string                 `json:"chunk_id"`
	Text                string                 `json:"text"`
	DocumentCode        string                 `json:"document_code"`
	Section             string                 `json:"section"`
	ReferencedStandards string                 `json:"referenced_standards,omitempty"`
	Revision            string                 `json:"revision,omitempty"`
	SourceFile          string                 `json:"source_file,omitempty"`
	Page                int                    `json:"page,omitempty"`
	TableFlag           bool                   `json:"table_flag"`
	Score               float64                `json:"score"`
	KeywordScore        float64                `json:"keyword_score"`
	SemanticScore       float64                `json:"semantic_score"`
	Rank                int                    `json:"rank"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
}

// SearchResponse is the response for a retrieval request.
type SearchResponse struct {
	Query      string       `json:"query"`
	Collection string       `json:"collection"`
	Hits       []*SearchHit `json:"hits"`
	Total      int          `json:"total"`
	QueryTime  int64        `json:"query_time_ms"`
}
