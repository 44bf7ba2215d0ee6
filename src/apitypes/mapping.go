package apitypes

import (
	"github.com/opsportal/portal/src/chatdata"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/portalurl"
)

func UserToAPI(u *models.User) *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:          u.ID,
		DisplayName: u.BestName(),
		IsAdmin:     u.IsAdmin(),
	}
}

func UsersToAPI(users []*models.User) []User {
	result := make([]User, 0, len(users))
	for _, u := range users {
		result = append(result, *UserToAPI(u))
	}
	return result
}

func ChannelToAPI(c *models.Channel) Channel {
	result := Channel{
		ID:         c.ID,
		Slug:       c.Slug,
		Name:       c.Name,
		IsArchived: c.IsArchived,
		CreatedAt:  c.CreatedAt,
		Url:        portalurl.BuildChannel(c.Slug),
		ThreadsUrl: portalurl.BuildChannelThreads(c.Slug, nil),
	}
	if c.Description != nil {
		result.Description = *c.Description
	}
	return result
}

func ChannelWithUnreadToAPI(c *chatdata.ChannelWithUnread) Channel {
	result := ChannelToAPI(&c.Channel)
	count := c.UnreadCount
	result.UnreadCount = &count
	return result
}

func ChannelListToAPI(channels []*chatdata.ChannelWithUnread) ChannelList {
	result := ChannelList{
		Channels:    make([]Channel, 0, len(channels)),
		TotalUnread: chatdata.TotalUnread(channels),
	}
	for _, c := range channels {
		result.Channels = append(result.Channels, ChannelWithUnreadToAPI(c))
	}
	return result
}

func TagToAPI(t *models.Tag) Tag {
	return Tag{
		ID:   t.ID,
		Name: t.Name,
	}
}

func TagsToAPI(tags []*models.Tag) []Tag {
	result := make([]Tag, 0, len(tags))
	for _, t := range tags {
		result = append(result, TagToAPI(t))
	}
	return result
}

// Object paths stay server-side. Clients only ever see the gateway URLs.
func AttachmentToAPI(a *models.Attachment) Attachment {
	return Attachment{
		ID:          a.ID,
		FileName:    a.FileName,
		MimeType:    a.MimeType,
		SizeBytes:   a.SizeBytes,
		DownloadUrl: portalurl.BuildAttachmentDownload(a.ID),
		PreviewUrl:  portalurl.BuildAttachmentPreview(a.ID),
	}
}

func AttachmentsToAPI(atts []*models.Attachment) []Attachment {
	result := make([]Attachment, 0, len(atts))
	for _, a := range atts {
		result = append(result, AttachmentToAPI(a))
	}
	return result
}

func ReactionsToAPI(reactions []chatdata.ReactionSummary) []Reaction {
	result := make([]Reaction, 0, len(reactions))
	for _, r := range reactions {
		result = append(result, Reaction{
			Emoji:       r.Emoji,
			Count:       r.Count,
			ReactedByMe: r.ReactedByMe,
		})
	}
	return result
}

func MessageToAPI(m *models.Message, author *models.User) Message {
	return Message{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		ParentID:    m.ParentID,
		Body:        m.Body,
		Author:      UserToAPI(author),
		CreatedAt:   m.CreatedAt,
		EditedAt:    m.UpdatedAt,
		DeletedAt:   m.DeletedAt,
		Attachments: []Attachment{},
		Reactions:   []Reaction{},
		Mentions:    []User{},
	}
}

func MessageAndStuffToAPI(m *chatdata.MessageAndStuff) Message {
	result := MessageToAPI(&m.Message, m.Author)
	result.Attachments = AttachmentsToAPI(m.Attachments)
	result.Reactions = ReactionsToAPI(m.Reactions)
	result.Mentions = UsersToAPI(m.Mentions)
	return result
}

func CreatedMessageToAPI(m *chatdata.CreatedMessage, author *models.User) Message {
	result := MessageToAPI(m.Message, author)
	result.Attachments = AttachmentsToAPI(m.Attachments)
	result.Mentions = UsersToAPI(m.Mentions)
	return result
}

func ThreadToAPI(t *chatdata.ThreadAndStuff) Thread {
	result := Thread{
		Message:      MessageToAPI(&t.Thread, t.Author),
		ReplyCount:   t.ReplyCount,
		LastActivity: t.LastActivity,
		Unread:       t.Unread,
		Tags:         TagsToAPI(t.Tags),
	}
	result.AddUrls()
	return result
}

func ThreadWithRepliesToAPI(t *chatdata.ThreadWithReplies) ThreadWithReplies {
	result := ThreadWithReplies{
		Thread: Thread{
			Message:      MessageAndStuffToAPI(&t.Thread),
			ReplyCount:   len(t.Replies),
			LastActivity: t.LastActivity,
			Tags:         TagsToAPI(t.Tags),
		},
		Replies: make([]Message, 0, len(t.Replies)),
	}
	result.AddUrls()
	for i := range t.Replies {
		result.Replies = append(result.Replies, MessageAndStuffToAPI(&t.Replies[i]))
	}
	return result
}

func MentionToAPI(m *chatdata.MentionedMessage) Mention {
	threadID := m.Message.ID
	if m.Message.ParentID != nil {
		threadID = *m.Message.ParentID
	}
	return Mention{
		Channel:   ChannelToAPI(&m.Channel),
		Message:   MessageAndStuffToAPI(&m.MessageAndStuff),
		ThreadUrl: portalurl.BuildThread(threadID),
	}
}

func SearchResultToAPI(r *chatdata.SearchResult) SearchResult {
	return SearchResult{
		Channel: ChannelToAPI(&r.Channel),
		Thread:  ThreadToAPI(&r.ThreadAndStuff),
	}
}

func (t *Thread) AddUrls() {
	t.Url = portalurl.BuildThread(t.ID)
	t.RepliesUrl = portalurl.BuildThreadReplies(t.ID)
}
