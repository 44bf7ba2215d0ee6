package apitypes

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/chatdata"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/portalurl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	portalurl.SetGlobalBaseUrl("http://portal.test")
	m.Run()
}

func TestAttachmentHidesObjectPath(t *testing.T) {
	att := &models.Attachment{
		ID:         uuid.New(),
		ObjectPath: "chat/secret/path.pdf",
		FileName:   "report.pdf",
		MimeType:   "application/pdf",
		SizeBytes:  1234,
	}

	encoded, err := json.Marshal(AttachmentToAPI(att))
	require.Nil(t, err)
	assert.NotContains(t, string(encoded), "chat/secret")
	assert.Contains(t, string(encoded), `"downloadUrl":"http://portal.test/attachments/`+att.ID.String()+`/download"`)
}

func TestThreadToAPI(t *testing.T) {
	name := "Ada"
	author := &models.User{ID: uuid.New(), Email: "ada@example.test", DisplayName: &name, Role: models.RoleAdmin}
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	thread := &chatdata.ThreadAndStuff{
		Thread:       models.Message{ID: uuid.New(), ChannelID: uuid.New(), Body: "hello", CreatedAt: created},
		Author:       author,
		ReplyCount:   3,
		LastActivity: created.Add(time.Hour),
		Tags:         []*models.Tag{{ID: uuid.New(), Name: "incident"}},
		Unread:       true,
	}

	result := ThreadToAPI(thread)
	assert.Equal(t, thread.Thread.ID, result.ID)
	assert.Equal(t, "Ada", result.Author.DisplayName)
	assert.True(t, result.Author.IsAdmin)
	assert.Equal(t, 3, result.ReplyCount)
	assert.True(t, result.Unread)
	require.Len(t, result.Tags, 1)
	assert.Equal(t, "incident", result.Tags[0].Name)
	assert.Equal(t, portalurl.BuildThreadReplies(thread.Thread.ID), result.RepliesUrl)

	// Empty collections serialize as arrays, not null.
	encoded, err := json.Marshal(result)
	require.Nil(t, err)
	assert.Contains(t, string(encoded), `"attachments":[]`)
	assert.NotContains(t, string(encoded), `"parentId"`)
}

func TestUserFallsBackToEmail(t *testing.T) {
	u := UserToAPI(&models.User{ID: uuid.New(), Email: "ops@example.test"})
	assert.Equal(t, "ops@example.test", u.DisplayName)
	assert.False(t, u.IsAdmin)
	assert.Nil(t, UserToAPI(nil))
}

func TestChannelWithUnread(t *testing.T) {
	c := &chatdata.ChannelWithUnread{
		Channel:     models.Channel{ID: uuid.New(), Slug: "general", Name: "General"},
		UnreadCount: 0,
	}
	result := ChannelWithUnreadToAPI(c)
	require.NotNil(t, result.UnreadCount)
	assert.Equal(t, 0, *result.UnreadCount)
	assert.Equal(t, "http://portal.test/channels/general", result.Url)
}

func TestChannelListTotalsActiveChannels(t *testing.T) {
	channels := []*chatdata.ChannelWithUnread{
		{Channel: models.Channel{ID: uuid.New(), Slug: "general", Name: "General"}, UnreadCount: 3},
		{Channel: models.Channel{ID: uuid.New(), Slug: "old", Name: "Old", IsArchived: true}, UnreadCount: 7},
		{Channel: models.Channel{ID: uuid.New(), Slug: "ops", Name: "Ops"}, UnreadCount: 2},
	}

	result := ChannelListToAPI(channels)
	assert.Equal(t, 5, result.TotalUnread)
	require.Len(t, result.Channels, 3)
	assert.Equal(t, 7, *result.Channels[1].UnreadCount)

	empty, err := json.Marshal(ChannelListToAPI(nil))
	require.Nil(t, err)
	assert.JSONEq(t, `{"channels":[],"totalUnread":0}`, string(empty))
}

func TestMentionToAPI(t *testing.T) {
	threadID := uuid.New()
	aiko := "Aiko"
	m := &chatdata.MentionedMessage{
		Channel: models.Channel{ID: uuid.New(), Slug: "ops", Name: "Ops"},
		MessageAndStuff: chatdata.MessageAndStuff{
			Message: models.Message{ID: uuid.New(), ParentID: &threadID, Body: "@Aiko can you look?"},
			Mentions: []*models.User{
				{ID: uuid.New(), Email: "aiko@example.test", DisplayName: &aiko},
			},
		},
	}

	result := MentionToAPI(m)
	assert.Equal(t, "ops", result.Channel.Slug)
	assert.Equal(t, portalurl.BuildThread(threadID), result.ThreadUrl)
	require.Len(t, result.Message.Mentions, 1)
	assert.Equal(t, "Aiko", result.Message.Mentions[0].DisplayName)

	m.Message.ParentID = nil
	assert.Equal(t, portalurl.BuildThread(m.Message.ID), MentionToAPI(m).ThreadUrl)

	encoded, err := json.Marshal(MessageToAPI(&models.Message{ID: uuid.New()}, nil))
	require.Nil(t, err)
	assert.Contains(t, string(encoded), `"mentions":[]`)
}
