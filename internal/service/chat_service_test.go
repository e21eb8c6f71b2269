package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/letscodeshivansh/taskchat/internal/config"
	"github.com/letscodeshivansh/taskchat/internal/directory"
	"github.com/letscodeshivansh/taskchat/internal/domain"
	"github.com/letscodeshivansh/taskchat/internal/hub"
	"github.com/letscodeshivansh/taskchat/internal/repository"
)

type fixture struct {
	hub     *hub.Hub
	repo    repository.MessageRepository
	service ChatService
}

func newFixture(t *testing.T, chatCfg config.ChatConfig) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.MessageModel{}, &domain.TaskModel{}))
	require.NoError(t, db.Create(&domain.TaskModel{ID: "T1", Owner: "alice", Title: "Logo design"}).Error)

	if chatCfg.HistoryPageLimit == 0 {
		chatCfg.HistoryPageLimit = 100
	}
	if chatCfg.FeedbackMaxSize == 0 {
		chatCfg.FeedbackMaxSize = 4096
	}

	h := hub.NewHub()
	repo := repository.NewGormMessageRepository(db)
	svc := NewChatService(h, repo, directory.NewGormTaskDirectory(db), chatCfg)

	return &fixture{hub: h, repo: repo, service: svc}
}

func (f *fixture) connect(id, identity string) *hub.Client {
	c := hub.NewClient(id, identity, f.hub, nil, config.WebSocketConfig{SendBuffer: 16})
	f.hub.Register(c)
	return c
}

func recvEvents(t *testing.T, c *hub.Client) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for {
		select {
		case data := <-c.Send:
			var decoded map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &decoded))
			out = append(out, decoded)
		default:
			return out
		}
	}
}

func eventTypes(events []map[string]interface{}) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e["type"].(string)
	}
	return types
}

func TestPublishRoundTrip(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	alice := f.connect("c1", "alice")
	bob := f.connect("c2", "bob")
	require.NoError(t, f.service.HandleJoin(ctx, alice, "T1"))
	require.NoError(t, f.service.HandleJoin(ctx, bob, "T1"))
	recvEvents(t, alice)
	recvEvents(t, bob)

	err := f.service.HandlePublish(ctx, bob, &domain.MessageEvent{
		Type:     domain.EventMessage,
		TaskID:   "T1",
		Receiver: "alice",
		Body:     "hi",
	})
	require.NoError(t, err)

	// alice got the chat-message, bob got no echo.
	events := recvEvents(t, alice)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventChatMessage, events[0]["type"])
	assert.Equal(t, "T1", events[0]["taskId"])
	assert.Equal(t, "bob", events[0]["sender"])
	assert.Equal(t, "alice", events[0]["receiver"])
	assert.Equal(t, "hi", events[0]["body"])
	assert.Empty(t, recvEvents(t, bob))

	// Persisted exactly once and hydratable both ways.
	history, err := f.service.HydrateTask(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Body)
	assert.Equal(t, "bob", history[0].Sender)

	inbox, err := f.service.HydrateInbox(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, history[0].MessageID, inbox[0].MessageID)
}

func TestPublishOverridesWireSender(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	bob := f.connect("c1", "bob")
	require.NoError(t, f.service.HandleJoin(ctx, bob, "T1"))

	err := f.service.HandlePublish(ctx, bob, &domain.MessageEvent{
		TaskID:   "T1",
		Sender:   "mallory",
		Receiver: "alice",
		Body:     "hi",
	})
	require.NoError(t, err)

	history, err := f.service.HydrateTask(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "bob", history[0].Sender)
}

func TestPublishEmptyBodyRejected(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	alice := f.connect("c1", "alice")
	bob := f.connect("c2", "bob")
	require.NoError(t, f.service.HandleJoin(ctx, alice, "T1"))
	require.NoError(t, f.service.HandleJoin(ctx, bob, "T1"))
	recvEvents(t, alice)
	recvEvents(t, bob)

	err := f.service.HandlePublish(ctx, bob, &domain.MessageEvent{
		TaskID:   "T1",
		Receiver: "alice",
		Body:     "",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// The sender got an error event, the room saw nothing, nothing stored.
	assert.Equal(t, []string{domain.EventError}, eventTypes(recvEvents(t, bob)))
	assert.Empty(t, recvEvents(t, alice))
	history, err := f.service.HydrateTask(ctx, "T1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestPublishWithoutJoinRejected(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	bob := f.connect("c1", "bob")

	err := f.service.HandlePublish(ctx, bob, &domain.MessageEvent{
		TaskID:   "T1",
		Receiver: "alice",
		Body:     "hi",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	history, err := f.service.HydrateTask(ctx, "T1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestJoinRequiresAuthentication(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})

	anon := f.connect("c1", "")
	err := f.service.HandleJoin(context.Background(), anon, "T1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, []string{domain.EventError}, eventTypes(recvEvents(t, anon)))
	assert.Empty(t, f.hub.RoomMembers("T1"))
}

func TestJoinUnknownTask(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})

	bob := f.connect("c1", "bob")
	err := f.service.HandleJoin(context.Background(), bob, "nope")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Empty(t, f.hub.RoomMembers("nope"))
}

type failingRepo struct {
	repository.MessageRepository
}

func (failingRepo) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	return nil, domain.ErrStorage
}

func TestStorageFailureAbortsBroadcast(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	// Swap in a repository that always fails to append.
	svc := NewChatService(f.hub, failingRepo{f.repo}, stubDirectory{}, config.ChatConfig{HistoryPageLimit: 100})

	alice := f.connect("c1", "alice")
	bob := f.connect("c2", "bob")
	require.NoError(t, svc.HandleJoin(ctx, alice, "T1"))
	require.NoError(t, svc.HandleJoin(ctx, bob, "T1"))
	recvEvents(t, alice)
	recvEvents(t, bob)

	err := svc.HandlePublish(ctx, bob, &domain.MessageEvent{
		TaskID:   "T1",
		Receiver: "alice",
		Body:     "hi",
	})
	assert.ErrorIs(t, err, domain.ErrStorage)

	// The sender was told to retry, the room observed nothing.
	events := recvEvents(t, bob)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ErrCodeStorageError, events[0]["code"])
	assert.Empty(t, recvEvents(t, alice))
}

type stubDirectory struct{}

func (stubDirectory) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	if taskID == "T1" {
		return &domain.Task{ID: "T1", Owner: "alice"}, nil
	}
	return nil, domain.ErrTaskNotFound
}

func TestFeedbackRelay(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	alice := f.connect("c1", "alice")
	bob := f.connect("c2", "bob")
	require.NoError(t, f.service.HandleJoin(ctx, alice, "T1"))
	require.NoError(t, f.service.HandleJoin(ctx, bob, "T1"))
	recvEvents(t, alice)
	recvEvents(t, bob)

	payload := json.RawMessage(`{"typing":true}`)
	require.NoError(t, f.service.HandleFeedback(ctx, bob, payload))

	events := recvEvents(t, alice)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventFeedback, events[0]["type"])
	assert.Equal(t, "bob", events[0]["sender"])
	assert.Empty(t, recvEvents(t, bob))

	// Feedback is never persisted.
	history, err := f.service.HydrateTask(ctx, "T1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestFeedbackRequiresRoom(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})

	bob := f.connect("c1", "bob")
	err := f.service.HandleFeedback(context.Background(), bob, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, domain.ErrNotInRoom)
}

func TestFeedbackSizeCap(t *testing.T) {
	f := newFixture(t, config.ChatConfig{FeedbackMaxSize: 8})
	ctx := context.Background()

	bob := f.connect("c1", "bob")
	require.NoError(t, f.service.HandleJoin(ctx, bob, "T1"))
	recvEvents(t, bob)

	err := f.service.HandleFeedback(ctx, bob, json.RawMessage(`{"way":"too large a payload"}`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRecipientOnlyMode(t *testing.T) {
	f := newFixture(t, config.ChatConfig{RecipientOnly: true})
	ctx := context.Background()

	alice := f.connect("c1", "alice")
	bob := f.connect("c2", "bob")
	carol := f.connect("c3", "carol")
	for _, c := range []*hub.Client{alice, bob, carol} {
		require.NoError(t, f.service.HandleJoin(ctx, c, "T1"))
		recvEvents(t, c)
	}

	err := f.service.HandlePublish(ctx, bob, &domain.MessageEvent{
		TaskID:   "T1",
		Receiver: "alice",
		Body:     "hi",
	})
	require.NoError(t, err)

	assert.Len(t, recvEvents(t, alice), 1)
	assert.Empty(t, recvEvents(t, carol))
	assert.Empty(t, recvEvents(t, bob))
}

func TestDisconnectReleasesRoomsIdempotently(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	bob := f.connect("c1", "bob")
	require.NoError(t, f.service.HandleJoin(ctx, bob, "T1"))
	require.Equal(t, []string{"c1"}, f.hub.RoomMembers("T1"))

	require.NoError(t, f.service.HandleDisconnect(ctx, bob))
	assert.Empty(t, f.hub.RoomMembers("T1"))
	assert.Equal(t, 0, bob.Session.RoomCount())

	// Running cleanup again changes nothing.
	require.NoError(t, f.service.HandleDisconnect(ctx, bob))
	assert.Empty(t, f.hub.RoomMembers("T1"))
}

func TestLeaveIsIdempotent(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	bob := f.connect("c1", "bob")
	require.NoError(t, f.service.HandleJoin(ctx, bob, "T1"))

	require.NoError(t, f.service.HandleLeave(ctx, bob, "T1"))
	require.NoError(t, f.service.HandleLeave(ctx, bob, "T1"))
	assert.Empty(t, f.hub.RoomMembers("T1"))
	assert.False(t, bob.Session.InRoom("T1"))
}

func TestPerSenderOrdering(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	alice := f.connect("c1", "alice")
	bob := f.connect("c2", "bob")
	require.NoError(t, f.service.HandleJoin(ctx, alice, "T1"))
	require.NoError(t, f.service.HandleJoin(ctx, bob, "T1"))
	recvEvents(t, alice)
	recvEvents(t, bob)

	bodies := []string{"one", "two", "three"}
	for _, body := range bodies {
		require.NoError(t, f.service.HandlePublish(ctx, bob, &domain.MessageEvent{
			TaskID:   "T1",
			Receiver: "alice",
			Body:     body,
		}))
	}

	events := recvEvents(t, alice)
	require.Len(t, events, 3)
	for i, body := range bodies {
		assert.Equal(t, body, events[i]["body"])
	}

	history, err := f.service.HydrateTask(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, body := range bodies {
		assert.Equal(t, body, history[i].Body)
	}
}

func TestHydrateTaskPageBounds(t *testing.T) {
	f := newFixture(t, config.ChatConfig{HistoryPageLimit: 2})
	ctx := context.Background()

	bob := f.connect("c1", "bob")
	require.NoError(t, f.service.HandleJoin(ctx, bob, "T1"))
	for _, body := range []string{"a", "b", "c"} {
		require.NoError(t, f.service.HandlePublish(ctx, bob, &domain.MessageEvent{
			TaskID:   "T1",
			Receiver: "alice",
			Body:     body,
		}))
	}

	// A limit above the configured maximum is clamped.
	page, err := f.service.HydrateTaskPage(ctx, "T1", "", 50)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)
	assert.True(t, page.HasMore)
}
