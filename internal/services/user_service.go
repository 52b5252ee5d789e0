package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitcoach/internal/database"
	"fitcoach/internal/models"

	cache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrUserNotFound is returned by read paths that do not imply creation.
var ErrUserNotFound = errors.New("user not found")

// UserService handles user records with MongoDB. First contact creates the
// user atomically; there is no separate registration step.
type UserService struct {
	db         *database.MongoDB
	collection *mongo.Collection
	userCache  *cache.Cache
}

// NewUserService creates a new user service
func NewUserService(db *database.MongoDB) *UserService {
	return &UserService{
		db:         db,
		collection: db.Collection(database.CollectionUsers),
		// Short TTL: the cache only spares the history endpoint a lookup,
		// it must not hide a personality change for long.
		userCache: cache.New(2*time.Minute, 5*time.Minute),
	}
}

// EnsureUser creates the user on first contact or updates an existing one,
// in a single atomic upsert so concurrent first requests for a new user
// cannot race a read-then-write. A non-empty personality override is
// persisted; otherwise the stored personality stays untouched and new users
// get the default.
func (s *UserService) EnsureUser(ctx context.Context, userID, personalityOverride string) (*models.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	now := time.Now().UTC()

	filter := bson.M{"userId": userID}

	set := bson.M{"updatedAt": now}
	setOnInsert := bson.M{
		"userId":    userID,
		"coins":     int64(0),
		"createdAt": now,
	}

	// $set and $setOnInsert cannot touch the same field, so personality goes
	// in exactly one of them.
	if personalityOverride != "" {
		set["personality"] = personalityOverride
	} else {
		setOnInsert["personality"] = models.DefaultPersonality
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": setOnInsert,
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var user models.User
	if err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	s.userCache.Set(userID, &user, cache.DefaultExpiration)
	return &user, nil
}

// GetUser retrieves a user without creating one. Recently seen users are
// served from cache.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if cached, found := s.userCache.Get(userID); found {
		if user, ok := cached.(*models.User); ok {
			return user, nil
		}
	}

	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	s.userCache.Set(userID, &user, cache.DefaultExpiration)
	return &user, nil
}

// BumpCoins increments the user's engagement counter by one and returns the
// new value. The counter is a client-facing metric only; nothing gates on it.
func (s *UserService) BumpCoins(ctx context.Context, userID string) (int64, error) {
	update := bson.M{
		"$inc": bson.M{"coins": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment coins: %w", err)
	}

	s.userCache.Set(userID, &user, cache.DefaultExpiration)
	return user.Coins, nil
}
