package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectWriter is the storage the archive writes to.
type ObjectWriter interface {
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
}

// ObjectArchiver writes each raw message as a JSON object keyed by day.
type ObjectArchiver struct {
	store  ObjectWriter
	bucket string
	now    func() time.Time
}

func NewObjectArchiver(store ObjectWriter, bucket string) *ObjectArchiver {
	return &ObjectArchiver{store: store, bucket: bucket, now: time.Now}
}

type archivedMessage struct {
	Message
	Source     string    `json:"source"`
	ArchivedAt time.Time `json:"archivedAt"`
}

// Archive stores msg and returns its object key.
func (a *ObjectArchiver) Archive(ctx context.Context, msg Message, source string) (string, error) {
	now := a.now().UTC()
	data, err := json.Marshal(archivedMessage{Message: msg, Source: source, ArchivedAt: now})
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	key := archiveKey(now, source, msg.MessageID)
	if err := a.store.PutObject(ctx, a.bucket, key, "application/json", data); err != nil {
		return "", err
	}
	return key, nil
}

func archiveKey(at time.Time, source, messageID string) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, strings.Trim(messageID, "<> "))
	if id == "" {
		id = uuid.NewString()
	}
	return fmt.Sprintf("%s/%s/%s.json", at.Format("2006/01/02"), source, id)
}
