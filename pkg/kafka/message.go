package kafka

import (
	"encoding/json"
	"fmt"
	"time"
)

// IncomingMessage is a consumed Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	Upload *UploadMessage
}

// UploadMessage announces a menu image upload that needs an ingest job
type UploadMessage struct {
	TenantID  string `json:"tenant_id"`
	VenueID   string `json:"venue_id"`
	FilePath  string `json:"file_path"`
	UploadedBy string `json:"uploaded_by,omitempty"`
}

// ParseUploadMessage parses and validates the message body as an upload
// notification
func (m *IncomingMessage) ParseUploadMessage() error {
	var upload UploadMessage
	if err := json.Unmarshal(m.Value, &upload); err != nil {
		return fmt.Errorf("invalid upload message: %w", err)
	}

	if upload.TenantID == "" || upload.VenueID == "" || upload.FilePath == "" {
		return fmt.Errorf("upload message missing required fields (tenant_id, venue_id, file_path)")
	}

	m.Upload = &upload
	return nil
}
