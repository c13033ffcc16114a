package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Run kinds.
const (
	KindFinancialYear = "financial_year"
	KindLatest        = "latest"
	KindDistrict      = "district"
	KindIncremental   = "incremental"
)

// Run is the outcome of one sync attempt.
type Run struct {
	ID           string    `json:"id" bson:"_id"`
	Kind         string    `json:"kind" bson:"kind"`
	FinYear      string    `json:"fin_year,omitempty" bson:"fin_year,omitempty"`
	DistrictCode string    `json:"district_code,omitempty" bson:"district_code,omitempty"`
	Fetched      int       `json:"fetched" bson:"fetched"`
	Synced       int       `json:"synced" bson:"synced"`
	Skipped      bool      `json:"skipped,omitempty" bson:"skipped,omitempty"`
	Success      bool      `json:"success" bson:"success"`
	Error        string    `json:"error,omitempty" bson:"error,omitempty"`
	StartedAt    time.Time `json:"started_at" bson:"started_at"`
	FinishedAt   time.Time `json:"finished_at" bson:"finished_at"`
	DurationMS   int64     `json:"duration_ms" bson:"duration_ms"`
}

// RunRecorder keeps a history of sync runs.
type RunRecorder interface {
	Record(ctx context.Context, run Run) error
	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]Run, error)
}

// MemoryRecorder holds the most recent runs in process memory.
type MemoryRecorder struct {
	mu   sync.Mutex
	runs []Run
	max  int
}

// NewMemoryRecorder keeps at most max runs.
func NewMemoryRecorder(max int) *MemoryRecorder {
	if max <= 0 {
		max = 50
	}
	return &MemoryRecorder{max: max}
}

func (m *MemoryRecorder) Record(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	if over := len(m.runs) - m.max; over > 0 {
		m.runs = append([]Run(nil), m.runs[over:]...)
	}
	return nil
}

func (m *MemoryRecorder) Recent(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]Run, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

// RunsCollection is the MongoDB collection sync runs are written to.
const RunsCollection = "sync_runs"

// MongoRecorder archives runs in MongoDB.
type MongoRecorder struct {
	coll *mongo.Collection
}

// NewMongoRecorder uses the sync_runs collection of db and makes sure its
// indexes exist.
func NewMongoRecorder(ctx context.Context, db *mongo.Database) (*MongoRecorder, error) {
	coll := db.Collection(RunsCollection)
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "started_at", Value: -1}},
			Options: options.Index().SetName("started_at_idx"),
		},
		{
			Keys: bson.D{
				{Key: "kind", Value: 1},
				{Key: "fin_year", Value: 1},
			},
			Options: options.Index().SetName("kind_year_idx"),
		},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("error creating sync run indexes: %w", err)
	}
	return &MongoRecorder{coll: coll}, nil
}

func (m *MongoRecorder) Record(ctx context.Context, run Run) error {
	if _, err := m.coll.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}

func (m *MongoRecorder) Recent(ctx context.Context, limit int) ([]Run, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := m.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer cursor.Close(ctx)

	runs := []Run{}
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("decode sync runs: %w", err)
	}
	return runs, nil
}
