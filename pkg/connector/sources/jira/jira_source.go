package jira

import (
	"context"
	"net/url"
	"strings"

	"github.com/helixdata/helix/pkg/config"
	"github.com/helixdata/helix/pkg/connector/base"
	"github.com/helixdata/helix/pkg/connector/core"
	"github.com/helixdata/helix/pkg/errors"
	"github.com/helixdata/helix/pkg/metrics"
	"github.com/helixdata/helix/pkg/models"
	"github.com/helixdata/helix/pkg/pool"
	"go.uber.org/zap"
)

// JiraSource extracts the site's resource catalog incrementally over REST.
// Streams run in table order, parents before children, each committing its
// replication bookmark only after its own extraction finishes cleanly.
type JiraSource struct {
	*base.BaseConnector

	cfg     *sourceConfig
	client  *Client
	tracker *CursorTracker

	// streams holds the full table; byName and children index it
	streams  []*StreamDescriptor
	byName   map[string]*StreamDescriptor
	children map[string][]*StreamDescriptor
}

// NewJiraSource creates an uninitialized source connector.
func NewJiraSource(name string, cfg *config.BaseConfig) (core.Source, error) {
	return &JiraSource{
		BaseConnector: base.NewBaseConnector("jira", core.ConnectorTypeSource, "1.0.0"),
		tracker:       NewCursorTracker(),
	}, nil
}

// Initialize validates configuration, builds the HTTP client, and indexes
// the stream table.
func (s *JiraSource) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if err := s.BaseConnector.Initialize(ctx, cfg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize base connector")
	}

	sc, err := newSourceConfig(cfg)
	if err != nil {
		return err
	}
	s.cfg = sc

	retry := base.NewRetryPolicy(cfg.Reliability.RetryAttempts, cfg.Reliability.RetryDelay.Std())
	s.client = NewClient(sc, retry, cfg.Timeouts.Request.Std(), s.GetLogger())

	s.streams = streamTable()
	s.byName = make(map[string]*StreamDescriptor, len(s.streams))
	s.children = make(map[string][]*StreamDescriptor)
	for _, desc := range s.streams {
		s.byName[desc.Name] = desc
		if desc.IsChild() {
			s.children[desc.Parent] = append(s.children[desc.Parent], desc)
		}
	}
	for _, name := range sc.Streams {
		if _, ok := s.byName[name]; !ok {
			return errors.Newf(errors.ErrorTypeConfig, "unknown stream %q", name)
		}
	}

	s.UpdateHealth(true, map[string]interface{}{
		"domain":       sc.Domain,
		"auth_type":    sc.AuthType,
		"stream_count": len(s.streams),
	})

	s.GetLogger().Info("jira source initialized",
		zap.String("domain", sc.Domain),
		zap.String("auth_type", sc.AuthType),
		zap.Strings("selected_streams", sc.Streams),
		zap.Int("page_size", sc.PageSize))

	return nil
}

// Discover reports the extractable streams. Records are semi-structured, so
// each stream surfaces as a single JSON-typed field.
func (s *JiraSource) Discover(ctx context.Context) (*core.Schema, error) {
	if s.cfg == nil {
		return nil, errors.New(errors.ErrorTypeInternal, "source not initialized")
	}

	fields := make([]core.Field, 0, len(s.streams))
	for _, desc := range s.streams {
		if !s.cfg.selected(desc.Name) && !desc.IsChild() {
			continue
		}
		fields = append(fields, core.Field{
			Name:     desc.Name,
			Type:     core.FieldTypeJSON,
			Nullable: true,
		})
	}

	return &core.Schema{
		Name:    "jira",
		Version: 1,
		Fields:  fields,
	}, nil
}

// Read streams all selected resources and their dependents.
func (s *JiraSource) Read(ctx context.Context) (*core.RecordStream, error) {
	recordsChan := make(chan *models.Record, s.cfg.PageSize)
	errorsChan := make(chan error, 10)

	stream := &core.RecordStream{
		Records: recordsChan,
		Errors:  errorsChan,
	}

	go func() {
		defer close(recordsChan)
		defer close(errorsChan)

		if err := s.readRecords(ctx, recordsChan); err != nil {
			errorsChan <- err
		}
	}()

	return stream, nil
}

// ReadBatch groups the record stream into fixed-size batches.
func (s *JiraSource) ReadBatch(ctx context.Context, batchSize int) (*core.BatchStream, error) {
	batchesChan := make(chan []*models.Record, 10)
	errorsChan := make(chan error, 10)

	stream := &core.BatchStream{
		Batches: batchesChan,
		Errors:  errorsChan,
	}

	go func() {
		defer close(batchesChan)
		defer close(errorsChan)

		if err := s.readBatches(ctx, batchSize, batchesChan); err != nil {
			errorsChan <- err
		}
	}()

	return stream, nil
}

// readRecords walks the stream table in order. A stream failure discards its
// pending bookmark and aborts the run; streams that already committed keep
// their state.
func (s *JiraSource) readRecords(ctx context.Context, out chan<- *models.Record) error {
	for _, desc := range s.streams {
		if desc.IsChild() {
			// Children run under their parent's pass
			continue
		}
		if !s.cfg.selected(desc.Name) {
			continue
		}

		if err := s.runStream(ctx, desc, out); err != nil {
			s.GetLogger().Error("stream extraction failed",
				zap.String("stream", desc.Name),
				zap.Error(err))
			return err
		}
	}
	return nil
}

func (s *JiraSource) readBatches(ctx context.Context, batchSize int, batchesChan chan<- []*models.Record) error {
	recordsChan := make(chan *models.Record, s.cfg.PageSize)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsChan)
		if err := s.readRecords(ctx, recordsChan); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	batch := pool.GetBatchSlice(batchSize)
	for record := range recordsChan {
		batch = append(batch, record)
		if len(batch) >= batchSize {
			select {
			case batchesChan <- batch:
				batch = pool.GetBatchSlice(batchSize)
			case <-ctx.Done():
				pool.PutBatchSlice(batch)
				return ctx.Err()
			}
		}
	}
	if len(batch) > 0 {
		select {
		case batchesChan <- batch:
		case <-ctx.Done():
			pool.PutBatchSlice(batch)
			return ctx.Err()
		}
	} else {
		pool.PutBatchSlice(batch)
	}

	return <-errCh
}

// runStream extracts one top-level stream, then its children under each
// derived context, then commits bookmarks parent-first. The fan-out stream
// takes its own path since its requests derive from two parent collections.
func (s *JiraSource) runStream(ctx context.Context, desc *StreamDescriptor, out chan<- *models.Record) error {
	if desc.FanOut != nil {
		if err := s.extractFanout(ctx, desc, out); err != nil {
			s.tracker.Discard(desc.Name)
			return err
		}
		s.tracker.Commit(desc.Name)
		return nil
	}

	contexts, err := s.extractStream(ctx, desc, Context{}, out)
	if err != nil {
		s.tracker.Discard(desc.Name)
		return err
	}
	s.tracker.Commit(desc.Name)

	for _, child := range s.children[desc.Name] {
		if !s.cfg.selected(child.Name) {
			continue
		}
		for _, childCtx := range contexts {
			if _, err := s.extractStream(ctx, child, childCtx, out); err != nil {
				s.tracker.Discard(child.Name)
				return err
			}
		}
		s.tracker.Commit(child.Name)
	}

	return nil
}

// extractStream pages through one stream within one context, emitting each
// record and collecting child contexts when the stream has dependents.
func (s *JiraSource) extractStream(ctx context.Context, desc *StreamDescriptor, streamCtx Context, out chan<- *models.Record) ([]Context, error) {
	pg := &paginator{
		client:   s.client,
		desc:     desc,
		cfg:      s.cfg,
		throttle: s.RateLimit,
		guard:    s.ExecuteWithCircuitBreaker,
		logger:   s.GetLogger(),
	}

	bookmark := ""
	if value, ok := s.tracker.Bookmark(desc.Name); ok {
		bookmark = formatScalar(value)
	}

	var contexts []Context
	err := pg.run(ctx, streamCtx, pg.baseParams(bookmark), func(records []map[string]interface{}) error {
		for _, raw := range records {
			row := raw
			if desc.PostProcess != nil {
				row = desc.PostProcess(row, streamCtx)
				if row == nil {
					continue
				}
			}

			s.tracker.Observe(desc.Name, desc.ReplicationKey, row)
			if desc.ChildContext != nil {
				contexts = append(contexts, desc.ChildContext(row))
			}

			select {
			case out <- s.convertRecord(desc, row):
				metrics.RecordsExtracted.WithLabelValues("jira", desc.Name).Inc()
				s.RecordMetric("records_extracted", 1)
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "record emission cancelled")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contexts, nil
}

// extractFanout materializes both parent collections, then fetches one
// request per combination through the fan-out executor.
func (s *JiraSource) extractFanout(ctx context.Context, desc *StreamDescriptor, out chan<- *models.Record) error {
	left, err := s.collectRecords(ctx, desc.FanOut.Left)
	if err != nil {
		return err
	}
	right, err := s.collectRecords(ctx, desc.FanOut.Right)
	if err != nil {
		return err
	}

	executor := &fanoutExecutor{stream: desc.Name, logger: s.GetLogger()}
	records, err := executor.execute(ctx, left, right, func(ctx context.Context, a, b map[string]interface{}) ([]map[string]interface{}, error) {
		if err := s.RateLimit(ctx); err != nil {
			return nil, err
		}
		var (
			status int
			body   []byte
		)
		if err := s.ExecuteWithCircuitBreaker(func() error {
			var err error
			status, body, err = s.client.Do(ctx, desc.Flavor, desc.FanOut.Path(a, b), nil)
			return err
		}); err != nil {
			return nil, err
		}
		if status < 200 || status >= 300 {
			return nil, errors.Newf(errors.ErrorTypeData, "unexpected status %d for fan-out combination", status).
				WithDetail("body", truncateBody(body))
		}
		return extractRecords(body, desc.RecordsPath)
	})
	if err != nil {
		return err
	}

	for _, row := range records {
		s.tracker.Observe(desc.Name, desc.ReplicationKey, row)
		select {
		case out <- s.convertRecord(desc, row):
			metrics.RecordsExtracted.WithLabelValues("jira", desc.Name).Inc()
			s.RecordMetric("records_extracted", 1)
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "record emission cancelled")
		}
	}
	return nil
}

// collectRecords buffers one stream's records in memory for fan-out input.
// Post-processing applies; cursor observation does not, since the stream
// also runs on its own behalf.
func (s *JiraSource) collectRecords(ctx context.Context, name string) ([]map[string]interface{}, error) {
	desc, ok := s.byName[name]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeInternal, "fan-out references unknown stream %q", name)
	}

	pg := &paginator{
		client:   s.client,
		desc:     desc,
		cfg:      s.cfg,
		throttle: s.RateLimit,
		guard:    s.ExecuteWithCircuitBreaker,
		logger:   s.GetLogger(),
	}

	var collected []map[string]interface{}
	err := pg.run(ctx, Context{}, pg.baseParams(""), func(records []map[string]interface{}) error {
		for _, raw := range records {
			row := raw
			if desc.PostProcess != nil {
				row = desc.PostProcess(row, Context{})
				if row == nil {
					continue
				}
			}
			collected = append(collected, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return collected, nil
}

// convertRecord wraps a raw row in a pooled record envelope.
func (s *JiraSource) convertRecord(desc *StreamDescriptor, row map[string]interface{}) *models.Record {
	record := pool.NewRecordFromPool("jira")
	record.ID = recordID(desc, row)
	record.Metadata.Stream = desc.Name

	for key, value := range row {
		record.SetData(key, value)
	}
	record.SetMetadata("stream", desc.Name)
	record.SetMetadata("replication_mode", string(desc.Mode))

	return record
}

// recordID joins the stream name with the record's primary key values.
func recordID(desc *StreamDescriptor, row map[string]interface{}) string {
	parts := make([]string, 0, len(desc.PrimaryKeys)+1)
	parts = append(parts, desc.Name)
	for _, key := range desc.PrimaryKeys {
		if value, ok := row[key]; ok {
			parts = append(parts, formatScalar(value))
		}
	}
	return strings.Join(parts, ":")
}

// GetState exposes committed bookmarks for persistence between runs.
func (s *JiraSource) GetState() core.State {
	return core.State{
		"bookmarks": s.tracker.Bookmarks(),
	}
}

// SetState seeds bookmarks from a prior run.
func (s *JiraSource) SetState(state core.State) error {
	if state == nil {
		return nil
	}
	raw, ok := state["bookmarks"]
	if !ok {
		return nil
	}
	bookmarks, ok := raw.(map[string]interface{})
	if !ok {
		return errors.Newf(errors.ErrorTypeValidation, "bookmarks must be an object, got %T", raw)
	}
	s.tracker.Seed(bookmarks)
	return nil
}

// SupportsIncremental reports replication support.
func (s *JiraSource) SupportsIncremental() bool {
	return true
}

// SupportsBatch reports batch read support.
func (s *JiraSource) SupportsBatch() bool {
	return true
}

// Health verifies API reachability with a single lightweight request.
func (s *JiraSource) Health(ctx context.Context) error {
	if err := s.BaseConnector.Health(ctx); err != nil {
		return err
	}
	if s.client == nil {
		return errors.New(errors.ErrorTypeHealth, "source not initialized")
	}

	status, _, err := s.client.Do(ctx, flavorCore, "/serverInfo", url.Values{})
	if err != nil {
		s.UpdateHealth(false, map[string]interface{}{"error": err.Error()})
		return errors.Wrap(err, errors.ErrorTypeHealth, "health check request failed")
	}
	if status < 200 || status >= 300 {
		s.UpdateHealth(false, map[string]interface{}{"status": status})
		return errors.Newf(errors.ErrorTypeHealth, "health check returned status %d", status)
	}

	s.UpdateHealth(true, nil)
	return nil
}

// Metrics returns connector metrics alongside bookmark progress.
func (s *JiraSource) Metrics() map[string]interface{} {
	m := s.BaseConnector.Metrics()
	m["bookmarks"] = s.tracker.Bookmarks()
	return m
}
