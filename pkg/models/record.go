// Package models provides data models for Helix. The unified Record type
// lives in the pool package; this package re-exports it so connectors can
// express their dependency on the model without caring about pooling.
package models

import (
	"github.com/helixdata/helix/pkg/pool"
)

// Record is a type alias for pool.Record.
type Record = pool.Record

// RecordMetadata is a type alias for pool.RecordMetadata.
type RecordMetadata = pool.RecordMetadata

// NewRecord creates a new record with the given source and data.
var NewRecord = pool.NewRecord

// NewRecordFromPool creates a new record using pooled resources.
var NewRecordFromPool = pool.NewRecordFromPool
