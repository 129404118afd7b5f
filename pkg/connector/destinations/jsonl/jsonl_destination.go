package jsonl

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/helixdata/helix/pkg/config"
	"github.com/helixdata/helix/pkg/connector/core"
	"github.com/helixdata/helix/pkg/errors"
	jsonpool "github.com/helixdata/helix/pkg/json"
	"github.com/helixdata/helix/pkg/metrics"
	"github.com/helixdata/helix/pkg/models"
)

// JSONLDestination writes records as line-delimited JSON, optionally gzip
// compressed. Each line carries the record data plus an envelope with the
// originating stream, so one file can hold a full extraction run.
type JSONLDestination struct {
	config  *config.BaseConfig
	file    *os.File
	gzip    *gzip.Writer
	writer  *bufio.Writer
	encoder *jsonpool.StreamingEncoder

	filePath       string
	compress       bool
	recordsWritten int64
	mu             sync.Mutex
	closed         bool
}

// NewJSONLDestination creates an uninitialized JSONL destination.
func NewJSONLDestination(cfg *config.BaseConfig) (core.Destination, error) {
	return &JSONLDestination{config: cfg}, nil
}

// Initialize opens the output file and builds the writer chain.
func (d *JSONLDestination) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	d.config = cfg

	if cfg.Security.Credentials == nil || cfg.Security.Credentials["path"] == "" {
		return errors.New(errors.ErrorTypeConfig, "missing required file path in security.credentials")
	}
	d.filePath = cfg.Security.Credentials["path"]
	d.compress = cfg.Security.Credentials["compress"] == "true"

	if d.compress && !strings.HasSuffix(d.filePath, ".gz") {
		d.filePath += ".gz"
	}

	if err := os.MkdirAll(filepath.Dir(d.filePath), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create output directory")
	}
	file, err := os.Create(d.filePath)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create output file")
	}
	d.file = file

	var sink io.Writer = file
	if d.compress {
		d.gzip = gzip.NewWriter(file)
		sink = d.gzip
	}

	bufferSize := cfg.Performance.BufferSize
	if bufferSize <= 0 {
		bufferSize = 64 * 1024
	}
	d.writer = bufio.NewWriterSize(sink, bufferSize)
	d.encoder = jsonpool.NewStreamingEncoder(d.writer, false, "")

	return nil
}

// CreateSchema is a no-op; JSONL is schemaless.
func (d *JSONLDestination) CreateSchema(ctx context.Context, schema *core.Schema) error {
	return nil
}

// Write drains the record stream to the file.
func (d *JSONLDestination) Write(ctx context.Context, stream *core.RecordStream) error {
	for {
		select {
		case record, ok := <-stream.Records:
			if !ok {
				return d.flush()
			}
			if err := d.writeRecord(record); err != nil {
				return err
			}

		case err := <-stream.Errors:
			if err != nil {
				return err
			}

		case <-ctx.Done():
			_ = d.flush()
			return ctx.Err()
		}
	}
}

// WriteBatch drains the batch stream to the file.
func (d *JSONLDestination) WriteBatch(ctx context.Context, stream *core.BatchStream) error {
	for {
		select {
		case batch, ok := <-stream.Batches:
			if !ok {
				return d.flush()
			}
			for _, record := range batch {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := d.writeRecord(record); err != nil {
					return err
				}
			}

		case err := <-stream.Errors:
			if err != nil {
				return err
			}

		case <-ctx.Done():
			_ = d.flush()
			return ctx.Err()
		}
	}
}

func (d *JSONLDestination) writeRecord(record *models.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	line := map[string]interface{}{
		"id":     record.ID,
		"stream": record.Metadata.Stream,
		"data":   record.Data,
	}
	if err := d.encoder.Encode(line); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode record")
	}

	d.recordsWritten++
	metrics.RecordsWritten.WithLabelValues("jsonl").Inc()
	record.Release()
	return nil
}

func (d *JSONLDestination) flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.writer != nil {
		if err := d.writer.Flush(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to flush output")
		}
	}
	if d.gzip != nil {
		if err := d.gzip.Flush(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to flush gzip stream")
		}
	}
	return nil
}

// Close flushes and closes the writer chain.
func (d *JSONLDestination) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var firstErr error
	if d.writer != nil {
		if err := d.writer.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.gzip != nil {
		if err := d.gzip.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return errors.Wrap(firstErr, errors.ErrorTypeInternal, "failed to close output file")
	}
	return nil
}

// SupportsBatch reports batch write support.
func (d *JSONLDestination) SupportsBatch() bool {
	return true
}

// SupportsStreaming reports streaming write support.
func (d *JSONLDestination) SupportsStreaming() bool {
	return true
}

// Health verifies the output file is writable.
func (d *JSONLDestination) Health(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.file == nil {
		return errors.New(errors.ErrorTypeHealth, "destination is not open")
	}
	return nil
}

// Metrics returns write counters.
func (d *JSONLDestination) Metrics() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]interface{}{
		"records_written": d.recordsWritten,
		"file_path":       d.filePath,
		"compressed":      d.compress,
	}
}
