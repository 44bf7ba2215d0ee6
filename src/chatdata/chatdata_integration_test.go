package chatdata_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsportal/portal/src/attachments"
	"github.com/opsportal/portal/src/chatdata"
	"github.com/opsportal/portal/src/migration"
	"github.com/opsportal/portal/src/migration/types"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/objectstore"
	"github.com/opsportal/portal/src/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
	testPoolErr  error
)

// Tests in this file need a scratch Postgres database. Point
// PORTAL_TEST_DATABASE_URL at one to run them; it will be migrated.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	url := os.Getenv("PORTAL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PORTAL_TEST_DATABASE_URL not set")
	}

	testPoolOnce.Do(func() {
		ctx := context.Background()
		testPool, testPoolErr = pgxpool.New(ctx, url)
		if testPoolErr != nil {
			return
		}
		testPoolErr = migration.Migrate(ctx, testPool, types.MigrationVersion{})
	})
	require.Nil(t, testPoolErr)
	return testPool
}

type fixture struct {
	pool    *pgxpool.Pool
	admin   models.User
	member  models.User
	other   models.User
	channel *models.Channel
}

func newFixture(t *testing.T) *fixture {
	pool := getTestPool(t)
	ctx := context.Background()

	f := &fixture{
		pool:   pool,
		admin:  models.User{ID: uuid.New(), Email: "admin@example.test", Role: models.RoleAdmin},
		member: models.User{ID: uuid.New(), Email: "member@example.test"},
		other:  models.User{ID: uuid.New(), Email: "other@example.test"},
	}
	for _, u := range []models.User{f.admin, f.member, f.other} {
		_, err := pool.Exec(ctx, `INSERT INTO profile (id, email, role) VALUES ($1, $2, $3)`, u.ID, u.Email, u.Role)
		require.Nil(t, err)
	}

	channel, err := chatdata.CreateChannel(ctx, pool, f.admin, chatdata.CreateChannelInput{
		Slug: "general-" + uuid.NewString()[:8],
		Name: "General",
	})
	require.Nil(t, err)
	f.channel = channel
	return f
}

func (f *fixture) thread(t *testing.T, author models.User, body string) *models.Message {
	created, err := chatdata.CreateThread(context.Background(), f.pool, &nullStore{}, author, chatdata.CreateThreadInput{
		ChannelID: f.channel.ID,
		Body:      body,
	})
	require.Nil(t, err)
	return created.Message
}

func (f *fixture) reply(t *testing.T, author models.User, parentID uuid.UUID, body string) *models.Message {
	created, err := chatdata.CreateReply(context.Background(), f.pool, &nullStore{}, author, chatdata.CreateReplyInput{
		ParentID: parentID,
		Body:     body,
	})
	require.Nil(t, err)
	return created.Message
}

// Timestamps are assigned by the database, so scenarios that depend on exact
// times rewrite them afterwards.
func (f *fixture) setCreatedAt(t *testing.T, messageID uuid.UUID, createdAt time.Time) {
	_, err := f.pool.Exec(context.Background(), `UPDATE chat_message SET created_at = $2 WHERE id = $1`, messageID, createdAt)
	require.Nil(t, err)
}

type nullStore struct {
	mu   sync.Mutex
	puts int
}

func (s *nullStore) Put(ctx context.Context, objectPath string, body io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	return nil
}

func (s *nullStore) Delete(ctx context.Context, objectPath string) error { return nil }

func (s *nullStore) IssueTemporaryAccess(ctx context.Context, objectPath string, ttl time.Duration, opts objectstore.AccessOptions) (string, error) {
	return "https://objects.example.test/" + objectPath, nil
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ts(seconds int) time.Time {
	return base.Add(time.Duration(seconds) * time.Second)
}

func ptr[T any](v T) *T {
	return &v
}

func threadIDs(threads []chatdata.ThreadAndStuff) []uuid.UUID {
	ids := make([]uuid.UUID, len(threads))
	for i, th := range threads {
		ids[i] = th.Thread.ID
	}
	return ids
}

func TestThreadOrderingAndUnread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.thread(t, f.member, "Thread A")
	b := f.thread(t, f.other, "Thread B")
	r := f.reply(t, f.other, a.ID, "Reply to A")
	f.setCreatedAt(t, a.ID, ts(100))
	f.setCreatedAt(t, r.ID, ts(150))
	f.setCreatedAt(t, b.ID, ts(120))

	threads, err := chatdata.ListThreads(ctx, f.pool, &f.member, chatdata.ThreadsQuery{ChannelID: f.channel.ID})
	require.Nil(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, threadIDs(threads))
	assert.True(t, ts(150).Equal(threads[0].LastActivity))
	assert.Equal(t, 1, threads[0].ReplyCount)
	assert.True(t, threads[0].Unread)
	require.NotNil(t, threads[0].Author)
	assert.Equal(t, f.member.ID, threads[0].Author.ID)

	count, err := chatdata.UnreadCountForChannel(ctx, f.pool, f.member.ID, f.channel.ID)
	require.Nil(t, err)
	assert.Equal(t, 2, count)

	require.Nil(t, chatdata.MarkRead(ctx, f.pool, f.member.ID, f.channel.ID, ptr(ts(160))))
	count, err = chatdata.UnreadCountForChannel(ctx, f.pool, f.member.ID, f.channel.ID)
	require.Nil(t, err)
	assert.Equal(t, 0, count)

	// An older mark doesn't regress the marker.
	require.Nil(t, chatdata.MarkRead(ctx, f.pool, f.member.ID, f.channel.ID, ptr(ts(110))))
	count, err = chatdata.UnreadCountForChannel(ctx, f.pool, f.member.ID, f.channel.ID)
	require.Nil(t, err)
	assert.Equal(t, 0, count)

	// A new reply refreshes the thread.
	r2 := f.reply(t, f.other, b.ID, "Reply to B")
	f.setCreatedAt(t, r2.ID, ts(170))
	count, err = chatdata.UnreadCountForChannel(ctx, f.pool, f.member.ID, f.channel.ID)
	require.Nil(t, err)
	assert.Equal(t, 1, count)

	threads, err = chatdata.ListThreads(ctx, f.pool, &f.member, chatdata.ThreadsQuery{ChannelID: f.channel.ID})
	require.Nil(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, threadIDs(threads))
	assert.True(t, threads[0].Unread)
	assert.False(t, threads[1].Unread)

	channels, err := chatdata.ListChannelsWithUnread(ctx, f.pool, f.member.ID, false)
	require.Nil(t, err)
	found := false
	for _, c := range channels {
		if c.Channel.ID == f.channel.ID {
			found = true
			assert.Equal(t, 1, c.UnreadCount)
		}
	}
	assert.True(t, found)
}

func TestDeletedThreadsAndReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	thread := f.thread(t, f.member, "Going away soon")
	keep := f.reply(t, f.other, thread.ID, "first")
	gone := f.reply(t, f.other, thread.ID, "second")
	f.setCreatedAt(t, thread.ID, ts(0))
	f.setCreatedAt(t, keep.ID, ts(10))
	f.setCreatedAt(t, gone.ID, ts(20))

	require.Nil(t, chatdata.SoftDelete(ctx, f.pool, f.other, gone.ID))

	replies, err := chatdata.ListReplies(ctx, f.pool, &f.member, thread.ID)
	require.Nil(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, keep.ID, replies[0].Message.ID)
	require.NotNil(t, replies[0].Message.ParentID)
	assert.Equal(t, thread.ID, *replies[0].Message.ParentID)

	// Deleted replies don't count as activity.
	threads, err := chatdata.ListThreads(ctx, f.pool, nil, chatdata.ThreadsQuery{ChannelID: f.channel.ID})
	require.Nil(t, err)
	require.Len(t, threads, 1)
	assert.True(t, ts(10).Equal(threads[0].LastActivity))

	// Only the author or an admin may delete.
	err = chatdata.SoftDelete(ctx, f.pool, f.other, thread.ID)
	assert.ErrorIs(t, err, chatdata.ErrNotAuthor)

	require.Nil(t, chatdata.SoftDelete(ctx, f.pool, f.admin, thread.ID))
	audit, err := chatdata.FetchMessageForAudit(ctx, f.pool, f.admin, thread.ID)
	require.Nil(t, err)
	require.NotNil(t, audit.Message.DeletedAt)
	firstDeletedAt := *audit.Message.DeletedAt
	assert.Equal(t, "Going away soon", audit.Message.Body)

	// Deleting again is a no-op.
	require.Nil(t, chatdata.SoftDelete(ctx, f.pool, f.member, thread.ID))
	audit, err = chatdata.FetchMessageForAudit(ctx, f.pool, f.admin, thread.ID)
	require.Nil(t, err)
	assert.True(t, firstDeletedAt.Equal(*audit.Message.DeletedAt))

	_, err = chatdata.FetchMessageForAudit(ctx, f.pool, f.member, thread.ID)
	assert.ErrorIs(t, err, chatdata.ErrAdminOnly)

	threads, err = chatdata.ListThreads(ctx, f.pool, nil, chatdata.ThreadsQuery{ChannelID: f.channel.ID})
	require.Nil(t, err)
	assert.Empty(t, threads)

	_, err = chatdata.CreateReply(ctx, f.pool, &nullStore{}, f.other, chatdata.CreateReplyInput{ParentID: thread.ID, Body: "hello?"})
	assert.ErrorIs(t, err, chatdata.ErrThreadClosed)
	assert.Equal(t, oops.KindForbidden, oops.KindOf(err))

	_, err = chatdata.FetchMessage(ctx, f.pool, thread.ID)
	assert.ErrorIs(t, err, chatdata.ErrMessageNotFound)

	_, err = chatdata.UpdateMessage(ctx, f.pool, f.member, thread.ID, "edited")
	assert.ErrorIs(t, err, chatdata.ErrMessageDeleted)
}

func TestReplyDepth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	thread := f.thread(t, f.member, "root")
	reply := f.reply(t, f.other, thread.ID, "one level")

	_, err := chatdata.CreateReply(ctx, f.pool, &nullStore{}, f.member, chatdata.CreateReplyInput{ParentID: reply.ID, Body: "two levels"})
	assert.ErrorIs(t, err, chatdata.ErrThreadNotFound)

	_, err = chatdata.CreateReply(ctx, f.pool, &nullStore{}, f.member, chatdata.CreateReplyInput{ParentID: uuid.New(), Body: "nowhere"})
	assert.ErrorIs(t, err, chatdata.ErrThreadNotFound)

	_, err = chatdata.CreateReply(ctx, f.pool, &nullStore{}, f.member, chatdata.CreateReplyInput{ParentID: thread.ID, Body: "   "})
	assert.Equal(t, oops.KindInvalidInput, oops.KindOf(err))
}

func TestArchivedChannels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	thread := f.thread(t, f.member, "before archiving")

	archived := true
	_, err := chatdata.UpdateChannel(ctx, f.pool, f.member, f.channel.ID, chatdata.UpdateChannelInput{Archived: &archived})
	assert.ErrorIs(t, err, chatdata.ErrAdminOnly)
	_, err = chatdata.UpdateChannel(ctx, f.pool, f.admin, f.channel.ID, chatdata.UpdateChannelInput{Archived: &archived})
	require.Nil(t, err)

	_, err = chatdata.CreateThread(ctx, f.pool, &nullStore{}, f.member, chatdata.CreateThreadInput{ChannelID: f.channel.ID, Body: "after"})
	assert.ErrorIs(t, err, chatdata.ErrInvalidChannel)
	_, err = chatdata.CreateReply(ctx, f.pool, &nullStore{}, f.member, chatdata.CreateReplyInput{ParentID: thread.ID, Body: "after"})
	assert.ErrorIs(t, err, chatdata.ErrInvalidChannel)
	_, err = chatdata.CreateThread(ctx, f.pool, &nullStore{}, f.member, chatdata.CreateThreadInput{ChannelID: uuid.New(), Body: "nowhere"})
	assert.ErrorIs(t, err, chatdata.ErrInvalidChannel)

	active, err := chatdata.ListChannels(ctx, f.pool, false)
	require.Nil(t, err)
	for _, c := range active {
		assert.NotEqual(t, f.channel.ID, c.ID)
	}
	all, err := chatdata.ListChannels(ctx, f.pool, true)
	require.Nil(t, err)
	found := false
	for _, c := range all {
		found = found || c.ID == f.channel.ID
	}
	assert.True(t, found)

	bySlug, err := chatdata.FetchChannelBySlug(ctx, f.pool, f.channel.Slug)
	require.Nil(t, err)
	assert.True(t, bySlug.IsArchived)

	// An update with nothing to change just returns the channel.
	unchanged, err := chatdata.UpdateChannel(ctx, f.pool, f.admin, f.channel.ID, chatdata.UpdateChannelInput{})
	require.Nil(t, err)
	assert.Equal(t, f.channel.ID, unchanged.ID)
	assert.True(t, unchanged.IsArchived)

	byID, err := chatdata.FetchChannel(ctx, f.pool, f.channel.ID)
	require.Nil(t, err)
	assert.Equal(t, f.channel.Slug, byID.Slug)
	_, err = chatdata.FetchChannel(ctx, f.pool, uuid.New())
	assert.ErrorIs(t, err, chatdata.ErrChannelNotFound)
	_, err = chatdata.UpdateChannel(ctx, f.pool, f.admin, uuid.New(), chatdata.UpdateChannelInput{})
	assert.ErrorIs(t, err, chatdata.ErrChannelNotFound)
}

func TestChannelSlugs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := chatdata.FetchChannelBySlug(ctx, f.pool, "General-"+f.channel.Slug[len("general-"):])
	assert.ErrorIs(t, err, chatdata.ErrChannelNotFound)

	_, err = chatdata.CreateChannel(ctx, f.pool, f.admin, chatdata.CreateChannelInput{Slug: f.channel.Slug, Name: "Dupe"})
	assert.Equal(t, oops.KindInvalidInput, oops.KindOf(err))

	_, err = chatdata.CreateChannel(ctx, f.pool, f.member, chatdata.CreateChannelInput{Slug: "sneaky", Name: "Sneaky"})
	assert.ErrorIs(t, err, chatdata.ErrAdminOnly)
}

func TestTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	incident, err := chatdata.CreateTag(ctx, f.pool, f.member, " Incident-"+suffix+" ")
	require.Nil(t, err)
	assert.Equal(t, "Incident-"+suffix, incident.Name)

	again, err := chatdata.CreateTag(ctx, f.pool, f.other, "incident-"+suffix)
	require.Nil(t, err)
	assert.Equal(t, incident.ID, again.ID)

	deploy, err := chatdata.CreateTag(ctx, f.pool, f.member, "deploy_"+suffix)
	require.Nil(t, err)

	thread, err := chatdata.CreateThread(ctx, f.pool, &nullStore{}, f.member, chatdata.CreateThreadInput{
		ChannelID: f.channel.ID,
		Body:      "Database failover",
		TagIDs:    []uuid.UUID{incident.ID, deploy.ID},
	})
	require.Nil(t, err)
	plain := f.thread(t, f.member, "Lunch?")

	tags, err := chatdata.TagsForThread(ctx, f.pool, thread.Message.ID)
	require.Nil(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, deploy.ID, tags[0].ID)

	threads, err := chatdata.ListThreads(ctx, f.pool, &f.member, chatdata.ThreadsQuery{ChannelID: f.channel.ID, TagID: &incident.ID})
	require.Nil(t, err)
	assert.Equal(t, []uuid.UUID{thread.Message.ID}, threadIDs(threads))
	assert.Len(t, threads[0].Tags, 2)

	// Unknown tags roll the whole thread back.
	_, err = chatdata.CreateThread(ctx, f.pool, &nullStore{}, f.member, chatdata.CreateThreadInput{
		ChannelID: f.channel.ID,
		Body:      "Bad tag",
		TagIDs:    []uuid.UUID{uuid.New()},
	})
	assert.Equal(t, oops.KindInvalidInput, oops.KindOf(err))
	threads, err = chatdata.ListThreads(ctx, f.pool, nil, chatdata.ThreadsQuery{ChannelID: f.channel.ID})
	require.Nil(t, err)
	assert.Len(t, threads, 2)

	// Searching is case-insensitive and treats LIKE wildcards literally.
	found, err := chatdata.SearchTags(ctx, f.pool, "INCIDENT-"+suffix, 0)
	require.Nil(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, incident.ID, found[0].ID)

	found, err = chatdata.SearchTags(ctx, f.pool, "_"+suffix, 20)
	require.Nil(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, deploy.ID, found[0].ID)

	found, err = chatdata.SearchTags(ctx, f.pool, "  ", 20)
	require.Nil(t, err)
	assert.Empty(t, found)

	// Only the author or an admin can retag, and only thread roots.
	err = chatdata.AddTagToThread(ctx, f.pool, f.other, plain.ID, deploy.ID)
	assert.ErrorIs(t, err, chatdata.ErrNotAuthor)
	require.Nil(t, chatdata.AddTagToThread(ctx, f.pool, f.admin, plain.ID, deploy.ID))
	require.Nil(t, chatdata.AddTagToThread(ctx, f.pool, f.member, plain.ID, deploy.ID))

	reply := f.reply(t, f.other, plain.ID, "sure")
	err = chatdata.AddTagToThread(ctx, f.pool, f.other, reply.ID, deploy.ID)
	assert.Equal(t, oops.KindInvalidInput, oops.KindOf(err))

	ids, err := chatdata.ThreadIDsForTag(ctx, f.pool, deploy.ID)
	require.Nil(t, err)
	assert.ElementsMatch(t, []uuid.UUID{thread.Message.ID, plain.ID}, ids)

	require.Nil(t, chatdata.RemoveTagFromThread(ctx, f.pool, f.member, plain.ID, deploy.ID))
	ids, err = chatdata.ThreadIDsForTag(ctx, f.pool, deploy.ID)
	require.Nil(t, err)
	assert.Equal(t, []uuid.UUID{thread.Message.ID}, ids)

	// Deleting a tag removes associations but leaves threads alone.
	assert.ErrorIs(t, chatdata.DeleteTag(ctx, f.pool, f.member, incident.ID), chatdata.ErrAdminOnly)
	require.Nil(t, chatdata.DeleteTag(ctx, f.pool, f.admin, incident.ID))
	assert.ErrorIs(t, chatdata.DeleteTag(ctx, f.pool, f.admin, incident.ID), chatdata.ErrTagNotFound)

	tags, err = chatdata.TagsForThread(ctx, f.pool, thread.Message.ID)
	require.Nil(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, deploy.ID, tags[0].ID)
	_, err = chatdata.FetchMessage(ctx, f.pool, thread.Message.ID)
	assert.Nil(t, err)
}

func TestAttachmentsOnThreads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	store := &nullStore{}
	content := []byte("quarterly numbers")
	created, err := chatdata.CreateThread(ctx, f.pool, store, f.member, chatdata.CreateThreadInput{
		ChannelID: f.channel.ID,
		Body:      "Q3 report attached",
		Attachments: []attachments.Upload{{
			FileName: "Q3 report.pdf",
			Size:     int64(len(content)),
			Body:     bytes.NewReader(content),
		}},
	})
	require.Nil(t, err)
	require.Len(t, created.Attachments, 1)
	att := created.Attachments[0]
	assert.Equal(t, "application/pdf", att.MimeType)
	assert.Equal(t, fmt.Sprintf("chat/%s/%s/%s/%s_Q3_report.pdf", f.channel.ID, created.Message.ID, created.Message.ID, att.ID), att.ObjectPath)
	assert.Equal(t, 1, store.puts)

	gateway := attachments.Gateway{Lookup: attachments.DBLookup{Conn: f.pool}, Store: store}
	grant, err := gateway.RequestDownloadGrant(ctx, att.ID, &f.other)
	require.Nil(t, err)
	assert.Equal(t, "Q3 report.pdf", grant.FileName)

	// Oversized files are refused before anything is written.
	big := &nullStore{}
	_, err = chatdata.CreateThread(ctx, f.pool, big, f.member, chatdata.CreateThreadInput{
		ChannelID: f.channel.ID,
		Body:      "too big",
		Attachments: []attachments.Upload{{
			FileName: "huge.zip",
			Size:     26 * 1024 * 1024,
			Body:     bytes.NewReader(nil),
		}},
	})
	assert.Equal(t, oops.KindInvalidInput, oops.KindOf(err))
	assert.Equal(t, 0, big.puts)

	require.Nil(t, chatdata.SoftDelete(ctx, f.pool, f.member, created.Message.ID))
	_, err = gateway.RequestDownloadGrant(ctx, att.ID, &f.other)
	assert.ErrorIs(t, err, attachments.ErrMessageDeleted)
	_, err = gateway.RequestPreviewGrant(ctx, att.ID, &f.other)
	assert.ErrorIs(t, err, attachments.ErrMessageDeleted)
}

func TestReactionsAndEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	thread := f.thread(t, f.member, "Ship it?")

	present, err := chatdata.ToggleReaction(ctx, f.pool, f.other, thread.ID, "✅")
	require.Nil(t, err)
	assert.True(t, present)
	_, err = chatdata.ToggleReaction(ctx, f.pool, f.member, thread.ID, "👍")
	require.Nil(t, err)
	_, err = chatdata.ToggleReaction(ctx, f.pool, f.other, thread.ID, "👍")
	require.Nil(t, err)
	_, err = chatdata.ToggleReaction(ctx, f.pool, f.other, thread.ID, "🙃")
	assert.Equal(t, oops.KindInvalidInput, oops.KindOf(err))

	summaries, err := chatdata.ReactionSummaries(ctx, f.pool, &f.member, []uuid.UUID{thread.ID})
	require.Nil(t, err)
	assert.Equal(t, []chatdata.ReactionSummary{
		{Emoji: "👍", Count: 2, ReactedByMe: true},
		{Emoji: "✅", Count: 1, ReactedByMe: false},
	}, summaries[thread.ID])

	present, err = chatdata.ToggleReaction(ctx, f.pool, f.other, thread.ID, "✅")
	require.Nil(t, err)
	assert.False(t, present)

	_, err = chatdata.UpdateMessage(ctx, f.pool, f.other, thread.ID, "Ship it!")
	assert.ErrorIs(t, err, chatdata.ErrNotAuthor)
	updated, err := chatdata.UpdateMessage(ctx, f.pool, f.member, thread.ID, "Ship it!")
	require.Nil(t, err)
	assert.Equal(t, "Ship it!", updated.Body)
	assert.NotNil(t, updated.UpdatedAt)
}

func TestSearchThreads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	needle := "needle" + uuid.NewString()[:8]

	byBody := f.thread(t, f.member, "Found a "+needle+" in the logs")
	tag, err := chatdata.CreateTag(ctx, f.pool, f.member, needle+"-tag")
	require.Nil(t, err)
	byTag, err := chatdata.CreateThread(ctx, f.pool, &nullStore{}, f.member, chatdata.CreateThreadInput{
		ChannelID: f.channel.ID,
		Body:      "Unrelated body",
		TagIDs:    []uuid.UUID{tag.ID},
	})
	require.Nil(t, err)
	f.setCreatedAt(t, byBody.ID, ts(0))
	f.setCreatedAt(t, byTag.Message.ID, ts(10))

	results, err := chatdata.SearchThreads(ctx, f.pool, chatdata.SearchQuery{Query: strings.ToUpper(needle)}, 0)
	require.Nil(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, byTag.Message.ID, results[0].Thread.ID)
	assert.Equal(t, byBody.ID, results[1].Thread.ID)
	assert.Equal(t, f.channel.ID, results[0].Channel.ID)

	results, err = chatdata.SearchThreads(ctx, f.pool, chatdata.SearchQuery{Query: needle, TagID: &tag.ID}, 0)
	require.Nil(t, err)
	require.Len(t, results, 1)

	results, err = chatdata.SearchThreads(ctx, f.pool, chatdata.SearchQuery{Query: ""}, 0)
	require.Nil(t, err)
	assert.Empty(t, results)
}

func TestFetchThreadWithReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	thread := f.thread(t, f.member, "Deploy checklist")
	first := f.reply(t, f.other, thread.ID, "Step one")
	second := f.reply(t, f.member, thread.ID, "Step two")
	gone := f.reply(t, f.other, thread.ID, "Oops, wrong thread")
	f.setCreatedAt(t, thread.ID, ts(0))
	f.setCreatedAt(t, first.ID, ts(10))
	f.setCreatedAt(t, second.ID, ts(20))
	f.setCreatedAt(t, gone.ID, ts(30))
	require.Nil(t, chatdata.SoftDelete(ctx, f.pool, f.other, gone.ID))

	full, err := chatdata.FetchThreadWithReplies(ctx, f.pool, &f.member, thread.ID)
	require.Nil(t, err)
	assert.Equal(t, thread.ID, full.Thread.Message.ID)
	require.Len(t, full.Replies, 2)
	assert.Equal(t, first.ID, full.Replies[0].Message.ID)
	assert.Equal(t, second.ID, full.Replies[1].Message.ID)
	assert.True(t, ts(20).Equal(full.LastActivity))

	_, err = chatdata.FetchThreadWithReplies(ctx, f.pool, &f.member, first.ID)
	assert.ErrorIs(t, err, chatdata.ErrThreadNotFound)
	_, err = chatdata.FetchThreadWithReplies(ctx, f.pool, &f.member, uuid.New())
	assert.ErrorIs(t, err, chatdata.ErrThreadNotFound)
}

func TestMarkAllChannelsRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second, err := chatdata.CreateChannel(ctx, f.pool, f.admin, chatdata.CreateChannelInput{
		Slug: "random-" + uuid.NewString()[:8],
		Name: "Random",
	})
	require.Nil(t, err)

	f.thread(t, f.other, "In general")
	_, err = chatdata.CreateThread(ctx, f.pool, &nullStore{}, f.other, chatdata.CreateThreadInput{
		ChannelID: second.ID,
		Body:      "In random",
	})
	require.Nil(t, err)

	for _, channelID := range []uuid.UUID{f.channel.ID, second.ID} {
		count, err := chatdata.UnreadCountForChannel(ctx, f.pool, f.member.ID, channelID)
		require.Nil(t, err)
		assert.Equal(t, 1, count)
	}

	require.Nil(t, chatdata.MarkAllChannelsRead(ctx, f.pool, f.member.ID, nil))
	for _, channelID := range []uuid.UUID{f.channel.ID, second.ID} {
		count, err := chatdata.UnreadCountForChannel(ctx, f.pool, f.member.ID, channelID)
		require.Nil(t, err)
		assert.Equal(t, 0, count)
	}

	// Other users are unaffected.
	count, err := chatdata.UnreadCountForChannel(ctx, f.pool, f.admin.ID, f.channel.ID)
	require.Nil(t, err)
	assert.Equal(t, 1, count)
}

func TestListTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	suffix := uuid.NewString()[:8]
	zeta, err := chatdata.CreateTag(ctx, f.pool, f.member, "zeta-"+suffix)
	require.Nil(t, err)
	alpha, err := chatdata.CreateTag(ctx, f.pool, f.member, "Alpha-"+suffix)
	require.Nil(t, err)

	tags, err := chatdata.ListTags(ctx, f.pool)
	require.Nil(t, err)
	alphaIndex, zetaIndex := -1, -1
	for i, tag := range tags {
		switch tag.ID {
		case alpha.ID:
			alphaIndex = i
		case zeta.ID:
			zetaIndex = i
		}
	}
	require.NotEqual(t, -1, alphaIndex)
	require.NotEqual(t, -1, zetaIndex)
	assert.Less(t, alphaIndex, zetaIndex)
}

func TestMarkReadIsClampedToNow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.thread(t, f.other, "Before the mark")
	require.Nil(t, chatdata.MarkRead(ctx, f.pool, f.member.ID, f.channel.ID, ptr(time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC))))
	count, err := chatdata.UnreadCountForChannel(ctx, f.pool, f.member.ID, f.channel.ID)
	require.Nil(t, err)
	assert.Equal(t, 0, count)

	var marker time.Time
	err = f.pool.QueryRow(ctx,
		`SELECT last_read_at FROM chat_unread_marker WHERE user_id = $1 AND channel_id = $2`,
		f.member.ID, f.channel.ID,
	).Scan(&marker)
	require.Nil(t, err)
	assert.True(t, marker.Before(time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC)), "marker was %v", marker)

	// A thread posted after the mark is still unread.
	f.thread(t, f.other, "After the mark")
	count, err = chatdata.UnreadCountForChannel(ctx, f.pool, f.member.ID, f.channel.ID)
	require.Nil(t, err)
	assert.Equal(t, 1, count)

	require.Nil(t, chatdata.MarkAllChannelsRead(ctx, f.pool, f.member.ID, ptr(time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC))))
	f.thread(t, f.other, "After marking everything")
	count, err = chatdata.UnreadCountForChannel(ctx, f.pool, f.member.ID, f.channel.ID)
	require.Nil(t, err)
	assert.Equal(t, 1, count)

	// Without a time the database's clock is used.
	require.Nil(t, chatdata.MarkRead(ctx, f.pool, f.member.ID, f.channel.ID, nil))
	count, err = chatdata.UnreadCountForChannel(ctx, f.pool, f.member.ID, f.channel.ID)
	require.Nil(t, err)
	assert.Equal(t, 0, count)
}

func TestMentions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := chatdata.CreateThread(ctx, f.pool, &nullStore{}, f.other, chatdata.CreateThreadInput{
		ChannelID:  f.channel.ID,
		Body:       "@member please review",
		MentionIDs: []uuid.UUID{f.member.ID, f.member.ID},
	})
	require.Nil(t, err)
	require.Len(t, created.Mentions, 1)
	assert.Equal(t, f.member.ID, created.Mentions[0].ID)
	thread := created.Message

	reply, err := chatdata.CreateReply(ctx, f.pool, &nullStore{}, f.admin, chatdata.CreateReplyInput{
		ParentID:   thread.ID,
		Body:       "@member @other ping",
		MentionIDs: []uuid.UUID{f.member.ID, f.other.ID},
	})
	require.Nil(t, err)
	f.setCreatedAt(t, thread.ID, ts(0))
	f.setCreatedAt(t, reply.Message.ID, ts(10))

	// Unknown people roll the whole message back.
	_, err = chatdata.CreateReply(ctx, f.pool, &nullStore{}, f.admin, chatdata.CreateReplyInput{
		ParentID:   thread.ID,
		Body:       "@ghost",
		MentionIDs: []uuid.UUID{uuid.New()},
	})
	assert.Equal(t, oops.KindInvalidInput, oops.KindOf(err))

	tooMany := make([]uuid.UUID, chatdata.MaxMentionsPerMessage+1)
	for i := range tooMany {
		tooMany[i] = uuid.New()
	}
	_, err = chatdata.CreateThread(ctx, f.pool, &nullStore{}, f.other, chatdata.CreateThreadInput{
		ChannelID:  f.channel.ID,
		Body:       "everyone!",
		MentionIDs: tooMany,
	})
	assert.Equal(t, oops.KindInvalidInput, oops.KindOf(err))

	mentions, err := chatdata.ListMentions(ctx, f.pool, f.member, 0)
	require.Nil(t, err)
	require.Len(t, mentions, 2)
	assert.Equal(t, reply.Message.ID, mentions[0].Message.ID)
	assert.Equal(t, thread.ID, mentions[1].Message.ID)
	assert.Equal(t, f.channel.ID, mentions[0].Channel.ID)
	assert.Len(t, mentions[0].Mentions, 2)

	full, err := chatdata.FetchThreadWithReplies(ctx, f.pool, &f.member, thread.ID)
	require.Nil(t, err)
	require.Len(t, full.Thread.Mentions, 1)
	require.Len(t, full.Replies, 1)
	assert.Len(t, full.Replies[0].Mentions, 2)

	// Deleting the thread hides it and its replies.
	require.Nil(t, chatdata.SoftDelete(ctx, f.pool, f.other, thread.ID))
	mentions, err = chatdata.ListMentions(ctx, f.pool, f.member, 0)
	require.Nil(t, err)
	assert.Empty(t, mentions)

	audit, err := chatdata.FetchMessageForAudit(ctx, f.pool, f.admin, thread.ID)
	require.Nil(t, err)
	assert.Len(t, audit.Mentions, 1)
}

func TestSearchMentionCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	suffix := uuid.NewString()[:8]
	name := "Aiko " + suffix
	aiko := models.User{ID: uuid.New(), Email: "aiko-" + suffix + "@example.test", DisplayName: &name}
	_, err := f.pool.Exec(ctx, `INSERT INTO profile (id, email, display_name) VALUES ($1, $2, $3)`, aiko.ID, aiko.Email, aiko.DisplayName)
	require.Nil(t, err)

	byName, err := chatdata.SearchMentionCandidates(ctx, f.pool, strings.ToUpper("aiko "+suffix), 0)
	require.Nil(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, aiko.ID, byName[0].ID)

	byEmail, err := chatdata.SearchMentionCandidates(ctx, f.pool, "aiko-"+suffix+"@", 0)
	require.Nil(t, err)
	require.Len(t, byEmail, 1)

	blank, err := chatdata.SearchMentionCandidates(ctx, f.pool, "   ", 0)
	require.Nil(t, err)
	assert.Empty(t, blank)
}
