package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qd "github.com/qdrant/go-client/qdrant"

	"github.com/arielhalevy123/revsearch/internal/config"
	"github.com/arielhalevy123/revsearch/internal/models"
)

// Payload keys stored with every point. Qdrant point IDs must be UUIDs or
// integers, so the document ID lives in the payload and the point ID is a
// UUIDv5 derived from it.
const (
	payloadDocID = "doc_id"
	payloadText  = "text"
)

// QdrantIndex stores documents in a qdrant collection configured for cosine
// distance, over gRPC.
type QdrantIndex struct {
	client     *qd.Client
	collection string
	dimensions uint64
}

// NewQdrantIndex connects to qdrant. The collection is not touched until
// Ensure is called.
func NewQdrantIndex(cfg *config.QdrantConfig, collection string, dimensions int) (*QdrantIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	client, err := qd.NewClient(&qd.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &QdrantIndex{
		client:     client,
		collection: collection,
		dimensions: uint64(dimensions),
	}, nil
}

// Ensure creates the collection with cosine distance. An existing collection
// with matching distance and size is left untouched; on mismatch it is
// dropped and recreated, since qdrant cannot change either after creation.
func (q *QdrantIndex) Ensure(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", q.collection, err)
	}
	if exists {
		info, err := q.client.GetCollectionInfo(ctx, q.collection)
		if err != nil {
			return fmt.Errorf("inspect collection %s: %w", q.collection, err)
		}
		params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
		if params != nil && params.GetDistance() == qd.Distance_Cosine && params.GetSize() == q.dimensions {
			return nil
		}
		if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
			return fmt.Errorf("drop mismatched collection %s: %w", q.collection, err)
		}
	}
	if err := q.client.CreateCollection(ctx, &qd.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qd.NewVectorsConfig(&qd.VectorParams{
			Size:     q.dimensions,
			Distance: qd.Distance_Cosine,
		}),
	}); err != nil {
		return fmt.Errorf("create collection %s: %w", q.collection, err)
	}
	return nil
}

// Upsert writes one point per document, waiting for the result so a
// subsequent query sees the data.
func (q *QdrantIndex) Upsert(ctx context.Context, docs []models.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("documents and embeddings length mismatch: %d vs %d", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}
	points := make([]*qd.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &qd.PointStruct{
			Id: pointID(doc.ID),
			Vectors: &qd.Vectors{
				VectorsOptions: &qd.Vectors_Vector{
					Vector: &qd.Vector{Data: embeddings[i]},
				},
			},
			Payload: map[string]*qd.Value{
				payloadDocID: qd.NewValueString(doc.ID),
				payloadText:  qd.NewValueString(doc.Text),
			},
		}
	}
	wait := true
	if _, err := q.client.Upsert(ctx, &qd.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
		Wait:           &wait,
	}); err != nil {
		return fmt.Errorf("upsert %d points to %s: %w", len(points), q.collection, err)
	}
	return nil
}

// Existing retrieves points by their derived IDs and reports which document
// IDs were found.
func (q *QdrantIndex) Existing(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}
	pointIDs := make([]*qd.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}
	points, err := q.client.Get(ctx, &qd.GetPoints{
		CollectionName: q.collection,
		Ids:            pointIDs,
		WithPayload:    qd.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get points from %s: %w", q.collection, err)
	}
	found := make(map[string]bool, len(points))
	for _, p := range points {
		if id := p.GetPayload()[payloadDocID].GetStringValue(); id != "" {
			found[id] = true
		}
	}
	return found, nil
}

// Query returns the top n points by qdrant's cosine similarity, with payload
// and stored vectors so callers can re-rank exactly.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, n int) ([]Candidate, error) {
	if n <= 0 {
		return nil, nil
	}
	limit := uint64(n)
	points, err := q.client.Query(ctx, &qd.QueryPoints{
		CollectionName: q.collection,
		Query:          qd.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qd.NewWithPayload(true),
		WithVectors:    qd.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.collection, err)
	}
	candidates := make([]Candidate, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		id := payload[payloadDocID].GetStringValue()
		if id == "" {
			id = p.GetId().GetUuid()
		}
		candidates = append(candidates, Candidate{
			ID:     id,
			Text:   payload[payloadText].GetStringValue(),
			Vector: p.GetVectors().GetVector().GetData(),
			Score:  p.GetScore(),
		})
	}
	return candidates, nil
}

// Count returns the number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (uint64, error) {
	count, err := q.client.Count(ctx, &qd.CountPoints{CollectionName: q.collection})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.collection, err)
	}
	return count, nil
}

// Health checks the qdrant service.
func (q *QdrantIndex) Health(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

// pointID derives a stable UUIDv5 point ID from a document ID, so
// re-ingesting a document overwrites its point.
func pointID(docID string) *qd.PointId {
	return &qd.PointId{
		PointIdOptions: &qd.PointId_Uuid{
			Uuid: uuid.NewSHA1(uuid.NameSpaceOID, []byte(docID)).String(),
		},
	}
}
