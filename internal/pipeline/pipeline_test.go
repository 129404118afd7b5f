package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helixdata/helix/pkg/config"
	"github.com/helixdata/helix/pkg/connector/core"
	"github.com/helixdata/helix/pkg/errors"
	"github.com/helixdata/helix/pkg/models"
	"github.com/helixdata/helix/pkg/pool"
)

// fakeSource replays a fixed set of records, optionally ending with an error.
type fakeSource struct {
	records  []*models.Record
	finalErr error
}

func (s *fakeSource) Initialize(context.Context, *config.BaseConfig) error { return nil }
func (s *fakeSource) Close(context.Context) error                          { return nil }
func (s *fakeSource) GetState() core.State                                 { return core.State{} }
func (s *fakeSource) SetState(core.State) error                            { return nil }
func (s *fakeSource) SupportsIncremental() bool                            { return true }
func (s *fakeSource) SupportsBatch() bool                                  { return true }
func (s *fakeSource) Health(context.Context) error                         { return nil }
func (s *fakeSource) Metrics() map[string]interface{}                      { return nil }

func (s *fakeSource) Discover(context.Context) (*core.Schema, error) {
	return &core.Schema{Name: "fake", Version: 1}, nil
}

func (s *fakeSource) Read(ctx context.Context) (*core.RecordStream, error) {
	records := make(chan *models.Record, len(s.records))
	errs := make(chan error, 1)
	go func() {
		defer close(records)
		defer close(errs)
		for _, r := range s.records {
			records <- r
		}
		if s.finalErr != nil {
			errs <- s.finalErr
		}
	}()
	return &core.RecordStream{Records: records, Errors: errs}, nil
}

func (s *fakeSource) ReadBatch(context.Context, int) (*core.BatchStream, error) {
	return nil, errors.New(errors.ErrorTypeCapability, "not implemented")
}

// fakeDestination accumulates written batches.
type fakeDestination struct {
	mu      sync.Mutex
	records []*models.Record
}

func (d *fakeDestination) Initialize(context.Context, *config.BaseConfig) error { return nil }
func (d *fakeDestination) CreateSchema(context.Context, *core.Schema) error     { return nil }
func (d *fakeDestination) Close(context.Context) error                          { return nil }
func (d *fakeDestination) SupportsBatch() bool                                  { return true }
func (d *fakeDestination) SupportsStreaming() bool                              { return true }
func (d *fakeDestination) Health(context.Context) error                         { return nil }
func (d *fakeDestination) Metrics() map[string]interface{}                      { return nil }

func (d *fakeDestination) Write(ctx context.Context, stream *core.RecordStream) error {
	for record := range stream.Records {
		d.mu.Lock()
		d.records = append(d.records, record)
		d.mu.Unlock()
	}
	return nil
}

func (d *fakeDestination) WriteBatch(ctx context.Context, stream *core.BatchStream) error {
	for batch := range stream.Batches {
		d.mu.Lock()
		d.records = append(d.records, batch...)
		d.mu.Unlock()
	}
	return nil
}

func (d *fakeDestination) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

func testRecords(stream string, n int) []*models.Record {
	out := make([]*models.Record, 0, n)
	for i := 0; i < n; i++ {
		record := pool.NewRecord("fake", map[string]interface{}{"n": i})
		record.Metadata.Stream = stream
		out = append(out, record)
	}
	return out
}

func TestPipeline_RunMovesAllRecords(t *testing.T) {
	source := &fakeSource{records: testRecords("issues", 23)}
	dest := &fakeDestination{}

	p := New(source, dest, &Config{BatchSize: 5, FlushInterval: time.Second}, zap.NewNop())
	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, 23, dest.count())
	assert.Equal(t, int64(23), p.Metrics()["records_processed"])
}

func TestPipeline_SourceErrorPropagates(t *testing.T) {
	source := &fakeSource{
		records:  testRecords("issues", 3),
		finalErr: errors.New(errors.ErrorTypeConnection, "upstream gone"),
	}
	dest := &fakeDestination{}

	p := New(source, dest, &Config{BatchSize: 100, FlushInterval: time.Second}, zap.NewNop())
	err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))

	// Records that arrived before the failure are flushed
	assert.Equal(t, 3, dest.count())
}

func TestPipeline_TransformsApplyInOrder(t *testing.T) {
	source := &fakeSource{records: testRecords("issues", 4)}
	dest := &fakeDestination{}

	p := New(source, dest, &Config{BatchSize: 10, FlushInterval: time.Second}, zap.NewNop())
	p.AddTransform(func(_ context.Context, r *models.Record) (*models.Record, error) {
		r.SetData("tagged", true)
		return r, nil
	})
	p.AddTransform(DropFieldsTransform("n"))

	require.NoError(t, p.Run(context.Background()))
	require.Equal(t, 4, dest.count())
	for _, r := range dest.records {
		_, hasN := r.GetData("n")
		assert.False(t, hasN)
		tagged, _ := r.GetData("tagged")
		assert.Equal(t, true, tagged)
	}
}

func TestPipeline_FilterDropsRecords(t *testing.T) {
	records := append(testRecords("issues", 3), testRecords("boards", 2)...)
	source := &fakeSource{records: records}
	dest := &fakeDestination{}

	p := New(source, dest, &Config{BatchSize: 10, FlushInterval: time.Second}, zap.NewNop())
	p.AddTransform(StreamFilterTransform("issues"))

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 3, dest.count())
	assert.Equal(t, int64(2), p.Metrics()["records_dropped"])
}
