package session

import (
	"encoding/json"
	"io"
)

// StreamEventWriter serializes events as single-line JSON records.
type StreamEventWriter struct {
	encoder *json.Encoder
}

// NewStreamEventWriter constructs an event writer targeting the provided writer.
func NewStreamEventWriter(writer io.Writer) *StreamEventWriter {
	return &StreamEventWriter{encoder: json.NewEncoder(writer)}
}

// WriteEvent encodes the event followed by a newline.
func (streamWriter *StreamEventWriter) WriteEvent(event Event) error {
	return streamWriter.encoder.Encode(event)
}
