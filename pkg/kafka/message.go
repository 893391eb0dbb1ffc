package kafka

import (
	"encoding/json"
	"time"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	DatasetPublished *DatasetPublishedMessage
}

// DatasetPublishedMessage announces that a publisher registry dataset has a
// new or refreshed document available for ingestion.
type DatasetPublishedMessage struct {
	DatasetID  string    `json:"dataset_id,omitempty"`
	Identifier string    `json:"identifier"`
	Publisher  string    `json:"publisher"`
	SourceURL  string    `json:"source_url"`
	Timestamp  time.Time `json:"timestamp"`
}

// ParseDatasetPublished decodes the payload as a dataset-published message
func (m *IncomingMessage) ParseDatasetPublished() error {
	var msg DatasetPublishedMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	m.DatasetPublished = &msg
	return nil
}

// EventType returns the event_type header, or "" when absent
func (m *IncomingMessage) EventType() string {
	return m.Headers["event_type"]
}
