// Package pool provides unified object pooling for Helix.
//
// Record allocation dominates the hot path of an extraction run: every API
// page fans out into tens or hundreds of records that live only until the
// destination has consumed them. Pooling records and their data maps keeps
// GC pressure flat regardless of run size.
package pool

import (
	"sync"
	"time"
)

// Pool is a type-safe object pool built on sync.Pool.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
}

// New creates a typed pool with a constructor and an optional reset function
// applied when objects are returned.
func New[T any](newFn func() T, resetFn func(T)) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() interface{} { return newFn() },
		},
		reset: resetFn,
	}
}

// Get fetches an object from the pool
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns an object to the pool after resetting it
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	p.pool.Put(obj)
}

// RecordMetadata carries source and timing information for a record.
type RecordMetadata struct {
	// Source is the connector that produced the record
	Source string `json:"source"`
	// Stream is the logical stream the record belongs to
	Stream string `json:"stream,omitempty"`
	// Timestamp is when the record was extracted
	Timestamp time.Time `json:"timestamp"`
	// Custom holds connector-specific metadata
	Custom map[string]interface{} `json:"custom,omitempty"`
}

// Record is the unit of data flowing from sources to destinations.
type Record struct {
	// ID is a unique identifier for the record
	ID string `json:"id"`
	// Data contains the actual record payload
	Data map[string]interface{} `json:"data"`
	// Metadata contains source and timing information
	Metadata RecordMetadata `json:"metadata"`
}

// RecordPool provides optimized pooling for Record objects. Records are
// pre-allocated with a 16-capacity map for data fields.
var RecordPool = New(
	func() *Record {
		return &Record{
			Data: make(map[string]interface{}, 16),
		}
	},
	func(r *Record) {
		r.ID = ""
		for k := range r.Data {
			delete(r.Data, k)
		}
		if r.Metadata.Custom != nil {
			for k := range r.Metadata.Custom {
				delete(r.Metadata.Custom, k)
			}
		}
		r.Metadata = RecordMetadata{}
	},
)

// batchSlicePool recycles record batch slices between pipeline flushes.
var batchSlicePool = sync.Pool{
	New: func() interface{} {
		s := make([]*Record, 0, 1024)
		return &s
	},
}

// NewRecord creates an unpooled record with the given source and data.
func NewRecord(source string, data map[string]interface{}) *Record {
	return &Record{
		Data: data,
		Metadata: RecordMetadata{
			Source:    source,
			Timestamp: time.Now(),
		},
	}
}

// NewRecordFromPool fetches a record from the pool and stamps its source.
// The caller must Release it once the record is consumed.
func NewRecordFromPool(source string) *Record {
	r := RecordPool.Get()
	r.Metadata.Source = source
	r.Metadata.Timestamp = time.Now()
	return r
}

// GetBatchSlice fetches a batch slice with at least the given capacity.
func GetBatchSlice(capacity int) []*Record {
	sp := batchSlicePool.Get().(*[]*Record)
	s := *sp
	if cap(s) < capacity {
		return make([]*Record, 0, capacity)
	}
	return s[:0]
}

// PutBatchSlice returns a batch slice to the pool. The records themselves
// are not released; ownership of records stays with the caller.
func PutBatchSlice(batch []*Record) {
	batch = batch[:0]
	batchSlicePool.Put(&batch)
}

// SetData sets a data field, preserving the pooled map
func (r *Record) SetData(key string, value interface{}) {
	if r.Data == nil {
		r.Data = make(map[string]interface{}, 16)
	}
	r.Data[key] = value
}

// GetData returns a data field
func (r *Record) GetData(key string) (interface{}, bool) {
	if r.Data == nil {
		return nil, false
	}
	v, ok := r.Data[key]
	return v, ok
}

// SetMetadata sets a custom metadata field
func (r *Record) SetMetadata(key string, value interface{}) {
	if r.Metadata.Custom == nil {
		r.Metadata.Custom = make(map[string]interface{}, 4)
	}
	r.Metadata.Custom[key] = value
}

// GetMetadata returns a custom metadata field
func (r *Record) GetMetadata(key string) (interface{}, bool) {
	if r.Metadata.Custom == nil {
		return nil, false
	}
	v, ok := r.Metadata.Custom[key]
	return v, ok
}

// SetTimestamp sets the record timestamp
func (r *Record) SetTimestamp(t time.Time) {
	r.Metadata.Timestamp = t
}

// GetTimestamp returns the record timestamp
func (r *Record) GetTimestamp() time.Time {
	return r.Metadata.Timestamp
}

// Release returns the record to the pool
func (r *Record) Release() {
	RecordPool.Put(r)
}
