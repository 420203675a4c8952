// Package models defines the wire and data types shared across revsearch.
package models

// Document is one corpus entry: a piece of review text with a stable
// identifier. It is the JSON Lines record consumed by ingestion and the
// payload stored alongside each vector in the index.
type Document struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
