package models

import "encoding/json"

// Post is a short text entry with embedded likes and comments.
type Post struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	AuthorID   string    `gorm:"index;not null;size:64" json:"authorId"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	Categories StringSet `gorm:"serializer:json;type:text" json:"categories"`
	Likes      StringSet `gorm:"serializer:json;type:text" json:"likes"`
	Comments   Comments  `gorm:"serializer:json;type:text" json:"comments"`
	CreatedAt  int64     `gorm:"index;autoCreateTime:milli" json:"createdAt"`
}

// Comment is an entry in a post's append-only comment thread.
type Comment struct {
	ID        string `json:"id"`
	AuthorID  string `json:"authorId"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// Comments is an ordered comment thread.
type Comments []Comment

// MarshalJSON encodes a nil thread as an empty array.
func (c Comments) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Comment(c))
}
