package models

import (
	"time"

	"github.com/google/uuid"
)

/*
A Message is either a thread root (ParentID == nil) or a reply to one.
Replies never have replies of their own.
*/
type Message struct {
	ID        uuid.UUID  `db:"id"`
	ChannelID uuid.UUID  `db:"channel_id"`
	ParentID  *uuid.UUID `db:"parent_id"`
	Body      string     `db:"body"`
	CreatedBy uuid.UUID  `db:"created_by"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

type MessageState int

const (
	MessageStateActive MessageState = iota
	MessageStateDeleted
)

func (m *Message) State() MessageState {
	if m.DeletedAt != nil {
		return MessageStateDeleted
	}
	return MessageStateActive
}

func (m *Message) IsThread() bool {
	return m.ParentID == nil
}

func (m *Message) IsDeleted() bool {
	return m.State() == MessageStateDeleted
}
