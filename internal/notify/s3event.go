// Package notify turns bucket notifications into generator input.
package notify

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
)

// FromS3Event converts an S3 event into notifications. Keys arrive form-encoded
// ("+" for spaces) and are decoded here. Records for anything other than object
// creation are dropped; records without an event name are kept.
func FromS3Event(event events.S3Event) ([]domain.Notification, error) {
	notifications := make([]domain.Notification, 0, len(event.Records))
	for _, record := range event.Records {
		if record.EventName != "" && !strings.Contains(record.EventName, "ObjectCreated") {
			continue
		}

		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid object key %q: %w", record.S3.Object.Key, err)
		}
		notifications = append(notifications, domain.Notification{
			Bucket: record.S3.Bucket.Name,
			Key:    key,
		})
	}
	return notifications, nil
}

// ParseS3Event decodes an S3 event document, as delivered by S3 itself or by
// MinIO's Kafka notification target, into notifications.
func ParseS3Event(payload []byte) ([]domain.Notification, error) {
	var event events.S3Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("malformed bucket notification: %w", err)
	}
	return FromS3Event(event)
}
