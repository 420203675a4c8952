package models

// SearchResult is a single retrieved document with its exact cosine
// similarity to the query.
type SearchResult struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
	Text       string  `json:"text"`
}

// SearchResponse is the success envelope for a search: the echoed query and
// the matching documents, best first. Results is always non-nil so an empty
// set encodes as [] rather than null.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// ErrorResponse is the envelope for every non-2xx API response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
