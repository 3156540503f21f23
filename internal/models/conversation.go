package models

import (
	"encoding/json"
	"sort"
	"strings"
)

// Conversation is a two-party message thread. PairKey holds the sorted
// participant ids so that one unordered pair maps to one row.
type Conversation struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	Participants StringSet `gorm:"serializer:json;type:text;not null" json:"participants"`
	PairKey      string    `gorm:"uniqueIndex;size:160;not null" json:"-"`
	Messages     Messages  `gorm:"serializer:json;type:text" json:"messages"`
	CreatedAt    int64     `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt    int64     `gorm:"index;autoUpdateTime:milli" json:"updated_at"`
}

// Message is an entry in a conversation.
type Message struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// Messages is an ordered message list.
type Messages []Message

// MarshalJSON encodes a nil list as an empty array.
func (m Messages) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Message(m))
}

// PairKeyFor returns the order-independent key for two participants.
func PairKeyFor(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// HasParticipant reports whether userID takes part in the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants.Contains(userID)
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
