// Package helix is an incremental REST extraction engine for issue-tracker
// data. It drives offset pagination across a declarative catalog of API
// resources, tracks per-stream replication bookmarks that commit only after
// a clean pass, propagates parent identifiers into dependent streams, and
// writes normalized records through pluggable destination connectors.
//
// # Architecture
//
// The engine is organized as connectors around a small pipeline core:
//
//   - pkg/connector/sources/jira: the extraction engine - stream catalog,
//     pagination driver, cursor tracking, fan-out execution
//   - pkg/connector/destinations/jsonl: line-delimited JSON output with
//     optional gzip compression
//   - internal/pipeline: source-to-destination orchestration with batching
//   - pkg/connector/{core,base,registry}: connector contracts, shared
//     reliability machinery (retries, circuit breaking, rate limiting),
//     and factory registration
//
// # Usage
//
//	helix sync --source jira.yaml --destination out.yaml --state state.json
//
// Successive runs resume from the committed bookmarks in the state file.
package helix
