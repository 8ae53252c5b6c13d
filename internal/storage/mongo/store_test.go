package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zhouzirui/z-chatbot/backend/internal/model/chat"
	"github.com/zhouzirui/z-chatbot/backend/internal/model/user"
)

func connectTestDatabase(t *testing.T) *Database {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set, skipping mongo integration test")
	}

	ctx := context.Background()
	name := fmt.Sprintf("chatbot_test_%d", time.Now().UnixNano())
	db, err := Connect(ctx, uri, name, 5*time.Second)
	if err != nil {
		t.Fatalf("Connect err: %v", err)
	}
	t.Cleanup(func() {
		_ = db.db.Drop(context.Background())
		_ = db.Close(context.Background())
	})
	return db
}

func TestMessageDocumentToModel(t *testing.T) {
	id := primitive.NewObjectID()
	ts := time.Date(2024, 5, 1, 8, 30, 0, 0, time.FixedZone("x", 3600))
	doc := messageDocument{ID: id, Sender: "alice", Receiver: chat.BotIdentity, Content: "hi", CreatedAt: ts}

	msg := doc.toModel()
	if msg.ID != id.Hex() {
		t.Fatalf("expected hex id %s, got %s", id.Hex(), msg.ID)
	}
	if msg.CreatedAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", msg.CreatedAt.Location())
	}
	if !msg.CreatedAt.Equal(ts) {
		t.Fatalf("timestamp changed: %v vs %v", msg.CreatedAt, ts)
	}
}

func TestNextTimestampNeverDecreases(t *testing.T) {
	store := &MessageStore{last: time.Now().UTC().Add(time.Hour)}
	first := store.nextTimestamp()
	second := store.nextTimestamp()
	if second.Before(first) {
		t.Fatalf("timestamps went backwards: %v then %v", first, second)
	}
}

func TestConnectRequiresURI(t *testing.T) {
	if _, err := Connect(context.Background(), "", "chatbot", time.Second); err == nil {
		t.Fatal("expected error for empty uri")
	}
}

func TestMessageStoreRoundTrip(t *testing.T) {
	db := connectTestDatabase(t)
	ctx := context.Background()

	store, err := NewMessageStore(ctx, db)
	if err != nil {
		t.Fatalf("NewMessageStore err: %v", err)
	}

	contents := []string{"hi", "1", "5"}
	for _, content := range contents {
		if _, err := store.Insert(ctx, "alice", chat.BotIdentity, content); err != nil {
			t.Fatalf("Insert err: %v", err)
		}
	}
	if _, err := store.Insert(ctx, "bob", chat.BotIdentity, "other"); err != nil {
		t.Fatalf("Insert err: %v", err)
	}

	got, err := store.QueryByParticipant(ctx, "alice")
	if err != nil {
		t.Fatalf("QueryByParticipant err: %v", err)
	}
	if len(got) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(got))
	}
	for i, content := range contents {
		if got[i].Content != content {
			t.Fatalf("message %d: got %q want %q", i, got[i].Content, content)
		}
	}
}

func TestUserStoreDuplicateUsername(t *testing.T) {
	db := connectTestDatabase(t)
	ctx := context.Background()

	store, err := NewUserStore(ctx, db)
	if err != nil {
		t.Fatalf("NewUserStore err: %v", err)
	}

	u := user.User{ID: "u1", Username: "alice", PasswordHash: "hash", CreatedAt: time.Now()}
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	u.ID = "u2"
	if err := store.Create(ctx, u); !errors.Is(err, user.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	found, err := store.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername err: %v", err)
	}
	if found.ID != "u1" {
		t.Fatalf("unexpected user id %s", found.ID)
	}

	if _, err := store.FindByUsername(ctx, "missing"); !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
