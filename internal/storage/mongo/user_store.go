package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zhouzirui/z-chatbot/backend/internal/model/user"
)

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// UserStore implements user.Store on the users collection.
type UserStore struct {
	db   *Database
	coll *mongo.Collection
}

// NewUserStore ensures the unique username index exists and returns the store.
func NewUserStore(ctx context.Context, db *Database) (*UserStore, error) {
	coll := db.db.Collection(usersCollection)

	opCtx, cancel := db.opContext(ctx)
	defer cancel()

	_, err := coll.Indexes().CreateOne(opCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create user index: %w", err)
	}

	return &UserStore{db: db, coll: coll}, nil
}

// Create inserts u, mapping duplicate usernames to user.ErrUserExists.
func (s *UserStore) Create(ctx context.Context, u user.User) error {
	doc := userDocument{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UTC(),
	}

	opCtx, cancel := s.db.opContext(ctx)
	defer cancel()

	if _, err := s.coll.InsertOne(opCtx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByUsername loads a single account.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (user.User, error) {
	opCtx, cancel := s.db.opContext(ctx)
	defer cancel()

	var doc userDocument
	err := s.coll.FindOne(opCtx, bson.M{"username": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user.User{}, user.ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("find user: %w", err)
	}

	return user.User{
		ID:           doc.ID,
		Username:     doc.Username,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt.UTC(),
	}, nil
}
