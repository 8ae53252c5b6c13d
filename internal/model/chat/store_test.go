package chat

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreQueryByParticipantKeepsInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	inserts := []struct{ sender, receiver, content string }{
		{"alice", BotIdentity, "hi"},
		{"bob", BotIdentity, "hello"},
		{BotIdentity, "alice", "welcome"},
		{"alice", "bob", "ping"},
	}
	for _, in := range inserts {
		if _, err := store.Insert(ctx, in.sender, in.receiver, in.content); err != nil {
			t.Fatalf("Insert err: %v", err)
		}
	}

	got, err := store.QueryByParticipant(ctx, "alice")
	if err != nil {
		t.Fatalf("QueryByParticipant err: %v", err)
	}

	want := []string{"hi", "welcome", "ping"}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i, content := range want {
		if got[i].Content != content {
			t.Fatalf("message %d: got %q want %q", i, got[i].Content, content)
		}
	}
}

func TestMemoryStoreAssignsDistinctIDs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, _ := store.Insert(ctx, "alice", "bob", "same")
	second, _ := store.Insert(ctx, "alice", "bob", "same")

	if first.ID == "" || second.ID == "" {
		t.Fatal("expected store-assigned ids")
	}
	if first.ID == second.ID {
		t.Fatalf("duplicate content must produce distinct ids, got %s twice", first.ID)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 stored messages, got %d", store.Len())
	}
}

func TestMemoryStoreTimestampsNeverDecrease(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	store.now = func() time.Time {
		ts := ticks[i]
		i++
		return ts
	}

	ctx := context.Background()
	a, _ := store.Insert(ctx, "alice", "bob", "1")
	b, _ := store.Insert(ctx, "alice", "bob", "2")
	c, _ := store.Insert(ctx, "alice", "bob", "3")

	if b.CreatedAt.Before(a.CreatedAt) {
		t.Fatalf("createdAt went backwards: %v then %v", a.CreatedAt, b.CreatedAt)
	}
	if !c.CreatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("unexpected createdAt for third insert: %v", c.CreatedAt)
	}
}

func TestMemoryStoreQueryUnknownIdentityIsEmpty(t *testing.T) {
	store := NewMemoryStore()
	got, err := store.QueryByParticipant(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("QueryByParticipant err: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
