package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelgate-platform/modelgate/internal/entitlements"
	"github.com/modelgate-platform/modelgate/internal/events"
	"github.com/modelgate-platform/modelgate/internal/gate"
	"github.com/modelgate-platform/modelgate/internal/quota"
	"github.com/modelgate-platform/modelgate/internal/session"
)

type fakeRepo struct {
	chats    map[uuid.UUID]*Chat
	messages []Message
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{chats: make(map[uuid.UUID]*Chat)}
}

func (f *fakeRepo) CreateChat(_ context.Context, chat *Chat) error {
	f.chats[chat.ID] = chat
	return nil
}

func (f *fakeRepo) GetChat(_ context.Context, id uuid.UUID) (*Chat, error) {
	return f.chats[id], nil
}

func (f *fakeRepo) ListChatsByOwner(_ context.Context, ownerID uuid.UUID, _ ListParams) ([]Chat, int64, error) {
	var out []Chat
	for _, c := range f.chats {
		if c.OwnerUserID == ownerID {
			out = append(out, *c)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) InsertMessage(_ context.Context, msg *Message) error {
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeRepo) ListMessages(_ context.Context, chatID uuid.UUID, _ ListParams) ([]Message, int64, error) {
	var out []Message
	for _, m := range f.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

type fakeEntitlements struct {
	tiers map[string]entitlements.Entitlements
}

func (f *fakeEntitlements) Resolve(_ context.Context, tierID string) (entitlements.Entitlements, error) {
	ent, ok := f.tiers[tierID]
	if !ok {
		return entitlements.Entitlements{}, fmt.Errorf("%w: %q", entitlements.ErrUnknownTier, tierID)
	}
	return ent, nil
}

type fakeQuota struct {
	used    map[uuid.UUID]int
	failErr error
}

func newFakeQuota() *fakeQuota {
	return &fakeQuota{used: make(map[uuid.UUID]int)}
}

func (f *fakeQuota) CheckAndIncrement(_ context.Context, userID uuid.UUID, ent entitlements.Entitlements) error {
	if f.failErr != nil {
		return f.failErr
	}
	if ent.Limit.IsUnlimited() {
		f.used[userID]++
		return nil
	}
	if f.used[userID] >= ent.Limit.N() {
		return quota.ErrQuotaExceeded
	}
	f.used[userID]++
	return nil
}

type capturingPublisher struct {
	denied []events.PolicyDeniedEvent
}

func (p *capturingPublisher) PublishPolicyDenied(_ context.Context, event events.PolicyDeniedEvent) error {
	p.denied = append(p.denied, event)
	return nil
}

func testService(t *testing.T) (*Service, *fakeRepo, *fakeQuota, *capturingPublisher) {
	t.Helper()
	repo := newFakeRepo()
	ents := &fakeEntitlements{tiers: map[string]entitlements.Entitlements{
		"free": {Limit: entitlements.LimitOf(2), ModelIDs: []string{"gpt-4o-mini"}},
		"pro":  {Limit: entitlements.Unlimited(), ModelIDs: []string{"gpt-4o-mini", "gpt-4o"}},
	}}
	q := newFakeQuota()
	pub := &capturingPublisher{}
	return NewService(repo, ents, q, pub), repo, q, pub
}

func freeSession() *session.Session {
	return &session.Session{UserID: uuid.New(), Email: "user@example.com", SubscriptionType: "free"}
}

func TestSendMessageWithinQuota(t *testing.T) {
	svc, repo, _, pub := testService(t)
	sess := freeSession()

	chat, err := svc.CreateChat(context.Background(), sess, CreateChatRequest{Title: "hello", ModelID: "gpt-4o-mini"})
	require.NoError(t, err)

	msg, err := svc.SendMessage(context.Background(), sess, chat.ID, SendMessageRequest{Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, chat.ID, msg.ChatID)
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "gpt-4o-mini", msg.ModelID)
	assert.Len(t, repo.messages, 1)
	assert.Empty(t, pub.denied)
}

func TestSendMessageQuotaExceeded(t *testing.T) {
	svc, repo, _, pub := testService(t)
	sess := freeSession()

	chat, err := svc.CreateChat(context.Background(), sess, CreateChatRequest{Title: "hello", ModelID: "gpt-4o-mini"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := svc.SendMessage(context.Background(), sess, chat.ID, SendMessageRequest{Body: "hi"})
		require.NoError(t, err)
	}

	_, err = svc.SendMessage(context.Background(), sess, chat.ID, SendMessageRequest{Body: "one too many"})
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)

	// the denied message was never stored
	assert.Len(t, repo.messages, 2)

	require.Len(t, pub.denied, 1)
	assert.Equal(t, events.ReasonQuotaExceeded, pub.denied[0].Reason)
	assert.Equal(t, sess.UserID, pub.denied[0].UserID)
}

func TestSendMessageUnlimitedTierNeverDenied(t *testing.T) {
	svc, _, q, _ := testService(t)
	sess := &session.Session{UserID: uuid.New(), SubscriptionType: "pro"}

	chat, err := svc.CreateChat(context.Background(), sess, CreateChatRequest{Title: "work", ModelID: "gpt-4o"})
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		_, err := svc.SendMessage(context.Background(), sess, chat.ID, SendMessageRequest{Body: "msg"})
		require.NoError(t, err)
	}
	assert.Equal(t, 100, q.used[sess.UserID])
}

func TestSendMessageModelNotAllowed(t *testing.T) {
	svc, repo, _, pub := testService(t)
	sess := freeSession()

	chat, err := svc.CreateChat(context.Background(), sess, CreateChatRequest{Title: "hello", ModelID: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), sess, chat.ID, SendMessageRequest{Body: "hi", ModelID: "gpt-4o"})
	require.ErrorIs(t, err, ErrModelNotAllowed)
	assert.Empty(t, repo.messages)

	require.Len(t, pub.denied, 1)
	assert.Equal(t, events.ReasonModelNotAllowed, pub.denied[0].Reason)
}

func TestCreateChatModelNotAllowed(t *testing.T) {
	svc, repo, _, _ := testService(t)
	sess := freeSession()

	_, err := svc.CreateChat(context.Background(), sess, CreateChatRequest{Title: "nope", ModelID: "gpt-4o"})
	require.ErrorIs(t, err, ErrModelNotAllowed)
	assert.Empty(t, repo.chats)
}

func TestSendMessageToAnotherUsersChat(t *testing.T) {
	svc, repo, _, pub := testService(t)
	owner := freeSession()

	chat, err := svc.CreateChat(context.Background(), owner, CreateChatRequest{Title: "mine", ModelID: "gpt-4o-mini"})
	require.NoError(t, err)

	intruder := &session.Session{UserID: uuid.New(), SubscriptionType: "pro", IsAdmin: true}
	_, err = svc.SendMessage(context.Background(), intruder, chat.ID, SendMessageRequest{Body: "hi"})
	require.ErrorIs(t, err, gate.ErrForbidden)
	assert.Empty(t, repo.messages)

	require.Len(t, pub.denied, 1)
	assert.Equal(t, events.ReasonForbidden, pub.denied[0].Reason)
}

func TestSendMessageUnknownTier(t *testing.T) {
	svc, repo, _, pub := testService(t)
	sess := freeSession()

	chat, err := svc.CreateChat(context.Background(), sess, CreateChatRequest{Title: "hello", ModelID: "gpt-4o-mini"})
	require.NoError(t, err)

	sess.SubscriptionType = "deleted-tier"
	_, err = svc.SendMessage(context.Background(), sess, chat.ID, SendMessageRequest{Body: "hi"})
	require.ErrorIs(t, err, entitlements.ErrUnknownTier)
	assert.Empty(t, repo.messages)

	require.Len(t, pub.denied, 1)
	assert.Equal(t, events.ReasonUnknownTier, pub.denied[0].Reason)
}

func TestSendMessageChatNotFound(t *testing.T) {
	svc, _, _, _ := testService(t)

	_, err := svc.SendMessage(context.Background(), freeSession(), uuid.New(), SendMessageRequest{Body: "hi"})
	require.ErrorIs(t, err, ErrChatNotFound)
}

func TestSendMessageStoreFailureDenies(t *testing.T) {
	svc, repo, q, _ := testService(t)
	sess := freeSession()

	chat, err := svc.CreateChat(context.Background(), sess, CreateChatRequest{Title: "hello", ModelID: "gpt-4o-mini"})
	require.NoError(t, err)

	q.failErr = fmt.Errorf("connection refused")
	_, err = svc.SendMessage(context.Background(), sess, chat.ID, SendMessageRequest{Body: "hi"})
	require.Error(t, err)
	assert.Empty(t, repo.messages)
}

func TestGetChatOwnerOnly(t *testing.T) {
	svc, _, _, _ := testService(t)
	owner := freeSession()

	chat, err := svc.CreateChat(context.Background(), owner, CreateChatRequest{Title: "mine", ModelID: "gpt-4o-mini"})
	require.NoError(t, err)

	got, err := svc.GetChat(context.Background(), owner, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, got.ID)

	admin := &session.Session{UserID: uuid.New(), SubscriptionType: "pro", IsAdmin: true}
	_, err = svc.GetChat(context.Background(), admin, chat.ID)
	require.ErrorIs(t, err, gate.ErrForbidden)
}
