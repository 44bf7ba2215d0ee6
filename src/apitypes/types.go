package apitypes

import (
	"time"

	"github.com/google/uuid"
)

// These are the JSON shapes served by the website. They are built from
// models and chatdata results in mapping.go and never scanned from the
// database directly.

type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	IsAdmin     bool      `json:"isAdmin"`
}

type Channel struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsArchived  bool      `json:"isArchived"`
	CreatedAt   time.Time `json:"createdAt"`
	UnreadCount *int      `json:"unreadCount,omitempty"`

	Url        string `json:"url"`
	ThreadsUrl string `json:"threadsUrl"`
}

type ChannelList struct {
	Channels    []Channel `json:"channels"`
	TotalUnread int       `json:"totalUnread"`
}

type Tag struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Attachment struct {
	ID        uuid.UUID `json:"id"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`

	DownloadUrl string `json:"downloadUrl"`
	PreviewUrl  string `json:"previewUrl"`
}

type Reaction struct {
	Emoji       string `json:"emoji"`
	Count       int    `json:"count"`
	ReactedByMe bool   `json:"reactedByMe"`
}

type Message struct {
	ID        uuid.UUID  `json:"id"`
	ChannelID uuid.UUID  `json:"channelId"`
	ParentID  *uuid.UUID `json:"parentId,omitempty"`
	Body      string     `json:"body"`
	Author    *User      `json:"author,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	Attachments []Attachment `json:"attachments"`
	Reactions   []Reaction   `json:"reactions"`
	Mentions    []User       `json:"mentions"`
}

type Thread struct {
	Message
	ReplyCount   int       `json:"replyCount"`
	LastActivity time.Time `json:"lastActivity"`
	Unread       bool      `json:"unread"`
	Tags         []Tag     `json:"tags"`

	Url        string `json:"url"`
	RepliesUrl string `json:"repliesUrl"`
}

type ThreadWithReplies struct {
	Thread
	Replies []Message `json:"replies"`
}

type Mention struct {
	Channel Channel `json:"channel"`
	Message Message `json:"message"`
	// The thread to open to see the message in context.
	ThreadUrl string `json:"threadUrl"`
}

type SearchResult struct {
	Channel Channel `json:"channel"`
	Thread  Thread  `json:"thread"`
}
