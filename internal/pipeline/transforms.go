package pipeline

import (
	"context"

	"github.com/helixdata/helix/pkg/models"
)

// StreamFilterTransform passes only records from the named streams.
func StreamFilterTransform(streams ...string) Transform {
	allowed := make(map[string]struct{}, len(streams))
	for _, s := range streams {
		allowed[s] = struct{}{}
	}
	return func(_ context.Context, record *models.Record) (*models.Record, error) {
		if _, ok := allowed[record.Metadata.Stream]; !ok {
			record.Release()
			return nil, nil
		}
		return record, nil
	}
}

// DropFieldsTransform removes the named fields from every record, for
// payloads carrying bulky or sensitive nested objects.
func DropFieldsTransform(fields ...string) Transform {
	return func(_ context.Context, record *models.Record) (*models.Record, error) {
		for _, f := range fields {
			delete(record.Data, f)
		}
		return record, nil
	}
}
