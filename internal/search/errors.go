package search

import "fmt"

// InvalidQueryError reports a request rejected by validation, before any
// external call is made.
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return "invalid query: " + e.Reason
}

// EmbeddingError reports a failure while embedding the query text.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IndexUnavailableError reports a failure while querying the vector index.
type IndexUnavailableError struct {
	Err error
}

func (e *IndexUnavailableError) Error() string {
	return fmt.Sprintf("vector index unavailable: %v", e.Err)
}

func (e *IndexUnavailableError) Unwrap() error { return e.Err }
