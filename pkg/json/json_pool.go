// Package json provides high-performance JSON serialization for Helix with
// object pooling, backed by goccy/go-json.
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

var decoderPool = sync.Pool{
	New: func() interface{} {
		return &pooledDecoder{}
	},
}

// pooledDecoder wraps a JSON decoder for reuse
type pooledDecoder struct {
	decoder *gojson.Decoder
}

// Marshal encodes a value to JSON bytes
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal decodes JSON bytes into a value
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// GetBuffer fetches a pooled buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	// Don't retain very large buffers
	if buf.Cap() > 1<<20 {
		return
	}
	bufferPool.Put(buf)
}

// GetDecoder gets a pooled JSON decoder reading from r
func GetDecoder(r io.Reader) *gojson.Decoder {
	pd := decoderPool.Get().(*pooledDecoder)
	pd.decoder = gojson.NewDecoder(r)
	return pd.decoder
}

// PutDecoder returns a decoder to the pool
func PutDecoder(d *gojson.Decoder) {
	decoderPool.Put(&pooledDecoder{decoder: d})
}

// StreamingEncoder writes a sequence of JSON documents to a writer, one
// document per Encode call. Used by line-delimited destinations.
type StreamingEncoder struct {
	enc *gojson.Encoder
}

// NewStreamingEncoder creates a streaming encoder writing to w. When pretty
// is true, documents are indented with the given indent string.
func NewStreamingEncoder(w io.Writer, pretty bool, indent string) *StreamingEncoder {
	enc := gojson.NewEncoder(w)
	if pretty {
		enc.SetIndent("", indent)
	}
	return &StreamingEncoder{enc: enc}
}

// Encode writes one JSON document followed by a newline
func (se *StreamingEncoder) Encode(v interface{}) error {
	return se.enc.Encode(v)
}
