package dto

import (
	"legal-research-be/pkg/retrieval"
)

type SearchRequest struct {
	Query    string `json:"query" validate:"required"`
	Language string `json:"language,omitempty"`
	YearMin  int    `json:"year_min,omitempty"`
	YearMax  int    `json:"year_max,omitempty"`
}

type SearchResultDTO struct {
	DocumentId string  `json:"document_id"`
	ChunkId    string  `json:"chunk_id"`
	Title      string  `json:"title"`
	Collection string  `json:"collection"`
	Excerpt    string  `json:"excerpt"`
	Year       int     `json:"year,omitempty"`
	Authority  string  `json:"authority,omitempty"`
	FinalScore float64 `json:"final_score"`
}

type SearchResponse struct {
	Results []SearchResultDTO `json:"results"`
	Status  retrieval.Status  `json:"retrieval_status"`
}
