package mongo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zhouzirui/z-chatbot/backend/internal/model/chat"
)

type messageDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Sender    string             `bson:"sender"`
	Receiver  string             `bson:"receiver"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d messageDocument) toModel() chat.Message {
	return chat.Message{
		ID:        d.ID.Hex(),
		Sender:    d.Sender,
		Receiver:  d.Receiver,
		Content:   d.Content,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// MessageStore implements chat.Store on the messages collection.
type MessageStore struct {
	db   *Database
	coll *mongo.Collection

	mu   sync.Mutex
	last time.Time
}

// NewMessageStore ensures participant indexes exist and returns the store.
func NewMessageStore(ctx context.Context, db *Database) (*MessageStore, error) {
	coll := db.db.Collection(messagesCollection)

	opCtx, cancel := db.opContext(ctx)
	defer cancel()

	_, err := coll.Indexes().CreateMany(opCtx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "receiver", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create message indexes: %w", err)
	}

	return &MessageStore{db: db, coll: coll}, nil
}

// Insert writes a new message document.
func (s *MessageStore) Insert(ctx context.Context, sender, receiver, content string) (chat.Message, error) {
	doc := messageDocument{
		ID:        primitive.NewObjectID(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		CreatedAt: s.nextTimestamp(),
	}

	opCtx, cancel := s.db.opContext(ctx)
	defer cancel()

	if _, err := s.coll.InsertOne(opCtx, doc); err != nil {
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return doc.toModel(), nil
}

// QueryByParticipant returns all messages sent or received by identity, oldest first.
func (s *MessageStore) QueryByParticipant(ctx context.Context, identity string) ([]chat.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender": identity},
		bson.M{"receiver": identity},
	}}
	// ObjectIDs generated in one process increase, breaking createdAt ties
	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	opCtx, cancel := s.db.opContext(ctx)
	defer cancel()

	cur, err := s.coll.Find(opCtx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}

	var docs []messageDocument
	if err := cur.All(opCtx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	messages := make([]chat.Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, doc.toModel())
	}
	return messages, nil
}

// nextTimestamp returns a millisecond-precision time that never goes below the previous one.
func (s *MessageStore) nextTimestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := time.Now().UTC().Truncate(time.Millisecond)
	if ts.Before(s.last) {
		ts = s.last
	}
	s.last = ts
	return ts
}
