package jira

import (
	"strings"

	"github.com/helixdata/helix/pkg/errors"
	"github.com/tidwall/gjson"
)

// ReplicationMode selects how a stream is extracted across runs.
type ReplicationMode string

const (
	// ReplicationFullTable re-extracts every record on every run
	ReplicationFullTable ReplicationMode = "FULL_TABLE"
	// ReplicationIncremental bookmarks the maximum replication key value and
	// resumes from it on the next run
	ReplicationIncremental ReplicationMode = "INCREMENTAL"
)

// apiFlavor selects which API surface a stream's path is rooted at.
type apiFlavor string

const (
	// flavorCore is the main REST API (/rest/api/3)
	flavorCore apiFlavor = "core"
	// flavorAgile is the agile API (/rest/agile/1.0)
	flavorAgile apiFlavor = "agile"
)

// Context carries identifiers derived from a parent record into a child
// stream's request path and post-processing. Values are opaque pass-through
// identifiers; the engine never inspects them beyond substitution.
type Context map[string]interface{}

// contextFunc derives a child Context from one parent record.
type contextFunc func(record map[string]interface{}) Context

// benignErrorFunc reports whether a non-2xx response is a documented
// "no data for this parent" case rather than a failure.
type benignErrorFunc func(status int, body []byte) bool

// fanOutSpec describes a compound-dependency stream extracted as the
// Cartesian product of two parent collections.
type fanOutSpec struct {
	// Left and Right name the parent streams whose records are combined
	Left  string
	Right string
	// Path builds the fully-bound request path for one combination
	Path func(left, right map[string]interface{}) string
}

// StreamDescriptor is the static metadata for one API resource. The stream
// table in streams.go is the single declarative surface; behavior that
// differs per stream (custom params, benign-error checks, record reshaping)
// hangs off the descriptor as function values rather than subtypes.
type StreamDescriptor struct {
	// Name uniquely identifies the stream
	Name string
	// Path is the URL path, possibly containing {placeholders} bound from a
	// parent-derived Context
	Path string
	// PrimaryKeys are the field names forming record identity
	PrimaryKeys []string
	// ReplicationKey is the bookmark field; empty means full-table
	ReplicationKey string
	// Mode is the replication mode
	Mode ReplicationMode
	// RecordsPath is a gjson path selecting the record array within the
	// response body; empty selects the root (array or single object)
	RecordsPath string
	// Flavor selects the API base URL
	Flavor apiFlavor
	// Parent names the stream whose records provide this stream's Context
	Parent string
	// ChildContext derives the Context handed to child streams
	ChildContext contextFunc
	// PagingDisabled forces exactly one request per context
	PagingDisabled bool
	// PostProcess reshapes each raw record; returning nil suppresses it
	PostProcess PostProcessFunc
	// URLParams builds stream-specific query parameters
	URLParams urlParamsFunc
	// BenignError recognizes error responses that mean "no data"
	BenignError benignErrorFunc
	// FanOut marks a compound-dependency stream
	FanOut *fanOutSpec
}

// IsChild reports whether the stream requires a parent-derived Context.
func (d *StreamDescriptor) IsChild() bool {
	return d.Parent != ""
}

// Incremental reports whether the stream bookmarks replication progress.
func (d *StreamDescriptor) Incremental() bool {
	return d.ReplicationKey != "" && d.Mode == ReplicationIncremental
}

// bindPath substitutes {placeholder} segments with context values. A child
// stream path cannot be built without its context; a missing key is a
// programming or wiring error, not a transport condition.
func bindPath(path string, ctx Context) (string, error) {
	for {
		start := strings.Index(path, "{")
		if start == -1 {
			return path, nil
		}
		end := strings.Index(path[start:], "}")
		if end == -1 {
			return "", errors.Newf(errors.ErrorTypeValidation, "unterminated placeholder in path %q", path)
		}
		end += start

		key := path[start+1 : end]
		value, ok := ctx[key]
		if !ok {
			return "", errors.Newf(errors.ErrorTypeValidation, "path %q requires context key %q", path, key)
		}
		path = path[:start] + formatScalar(value) + path[end+1:]
	}
}

// extractRecords selects the record array from a parsed response body. An
// empty recordsPath accepts either a root-level array or a single root
// object (single-record endpoints such as server info). Non-object array
// elements are discarded.
func extractRecords(body []byte, recordsPath string) ([]map[string]interface{}, error) {
	root := gjson.ParseBytes(body)
	if !root.Exists() {
		return nil, errors.New(errors.ErrorTypeData, "response body is not valid JSON")
	}

	target := root
	if recordsPath != "" {
		target = root.Get(recordsPath)
		if !target.Exists() {
			// A present body without the wrapper key means an empty page
			return nil, nil
		}
	}

	if target.IsObject() {
		if m, ok := target.Value().(map[string]interface{}); ok {
			return []map[string]interface{}{m}, nil
		}
		return nil, nil
	}

	if !target.IsArray() {
		return nil, errors.Newf(errors.ErrorTypeData, "records locator %q did not select an array or object", recordsPath)
	}

	elements := target.Array()
	records := make([]map[string]interface{}, 0, len(elements))
	for _, el := range elements {
		m, ok := el.Value().(map[string]interface{})
		if !ok {
			continue
		}
		records = append(records, m)
	}
	return records, nil
}
