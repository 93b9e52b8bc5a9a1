package model

import "time"

// Kind discriminates the two conversation variants. A direct conversation has
// exactly two fixed participants; a channel has explicit, mutable membership.
type Kind string

const (
	KindDirect  Kind = "direct"
	KindChannel Kind = "channel"
)

type Conversation struct {
	ID          string       `bson:"_id,omitempty" json:"id"`
	Kind        Kind         `bson:"kind" json:"kind"`
	Title       string       `bson:"title,omitempty" json:"title,omitempty"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	OwnerID     string       `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	LastMessage *LastMessage `bson:"last_message,omitempty" json:"last_message,omitempty"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updated_at"`
}

// LastMessage is a denormalized summary of the most recent message, used to
// order conversation listings without loading message history.
type LastMessage struct {
	Content string    `bson:"content" json:"content"`
	SentAt  time.Time `bson:"sent_at" json:"sent_at"`
}

type Participant struct {
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	JoinedAt       time.Time `bson:"joined_at" json:"joined_at"`
}

// Message rows are immutable once stored.
type Message struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	SenderID       string    `bson:"sender_id" json:"sender_id"`
	Content        string    `bson:"content" json:"content"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// Less orders messages by (CreatedAt, ID) ascending, the display order of a feed.
func (m Message) Less(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

type Profile struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	Username   string    `bson:"username" json:"username"`
	Prefecture string    `bson:"prefecture,omitempty" json:"prefecture,omitempty"`
	AgeGroup   string    `bson:"age_group,omitempty" json:"age_group,omitempty"`
	Occupation string    `bson:"occupation,omitempty" json:"occupation,omitempty"`
	Hearing    string    `bson:"hearing,omitempty" json:"hearing,omitempty"`
	AvatarURL  string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}
