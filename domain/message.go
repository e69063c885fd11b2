package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageFile   MessageType = "file"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

type AuthorType string

const (
	AuthorVisitor AuthorType = "visitor"
	AuthorAgent   AuthorType = "agent"
	AuthorSystem  AuthorType = "system"
)

// Party identifies which side of the conversation acknowledges reads.
type Party string

const (
	PartyVisitor Party = "visitor"
	PartyAgent   Party = "agent"
)

// Reads reports whether a read acknowledgement from the party applies to a
// message authored by the given author. A party never reads its own messages;
// system messages are readable by both sides.
func (p Party) Reads(author AuthorType) bool {
	switch p {
	case PartyVisitor:
		return author != AuthorVisitor
	case PartyAgent:
		return author != AuthorAgent
	default:
		return false
	}
}

// Message is an immutable transcript entry. Seq is assigned under the
// session's critical section and is the only ordering that matters;
// CreatedAt is informational.
type Message struct {
	ID       uuid.UUID
	TenantID uuid.UUID

	ProjectID uuid.UUID
	SessionID uuid.UUID

	Seq uint64

	Type    MessageType
	Content string

	AuthorType AuthorType
	AuthorID   *uuid.UUID
	AuthorName string

	Metadata  map[string]string
	IsPrivate bool

	ReadByVisitor bool
	ReadByAgent   bool
	ReadAt        *time.Time

	CreatedAt time.Time
}

// ReadBy reports the read flag for the given party.
func (m Message) ReadBy(p Party) bool {
	if p == PartyVisitor {
		return m.ReadByVisitor
	}
	return m.ReadByAgent
}
