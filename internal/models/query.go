package models

// SearchQuery is the body of a POST /search request.
//
// TopK is optional; absent or non-positive means "use the configured
// default". SimilarityThreshold is a pointer so that an explicit 0 is
// distinguishable from the field being absent.
type SearchQuery struct {
	Query               string   `json:"query"`
	TopK                int      `json:"top_k,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
}
