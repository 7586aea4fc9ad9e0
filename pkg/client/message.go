package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vango-dev/vgate/pkg/protocol"
)

// ErrMessageDataRequired is returned for a MESSAGE_CREATE without a body.
var ErrMessageDataRequired = errors.New("client: message data is required")

// Message is a chat message from a MESSAGE_CREATE dispatch.
type Message struct {
	ID        string        `json:"id"`
	ChannelID string        `json:"channel_id"`
	GuildID   string        `json:"guild_id,omitempty"`
	Content   string        `json:"content"`
	Author    protocol.User `json:"author"`
	Timestamp time.Time     `json:"timestamp"`
}

// MessageCreate decodes a MESSAGE_CREATE body and emits it to message
// subscribers.
func MessageCreate(c *Client, data json.RawMessage) error {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrMessageDataRequired
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("client: decode %s: %w", protocol.EventMessageCreate, err)
	}
	return c.messages.Emit(&msg)
}
