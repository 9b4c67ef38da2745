package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/videotube/backend/internal/models"
)

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict indicates a write would violate a unique index.
	ErrConflict = errors.New("document conflict")
)

const (
	usersCollection         = "users"
	videosCollection        = "videos"
	subscriptionsCollection = "subscriptions"
)

// sanitizedProjection drops credentials from account reads.
var sanitizedProjection = bson.D{{Key: "password", Value: 0}, {Key: "refreshToken", Value: 0}}

// MongoStore is the credential store: accounts plus the read-side joins into
// videos and subscriptions.
type MongoStore struct {
	users         *mongo.Collection
	videos        *mongo.Collection
	subscriptions *mongo.Collection
	now           func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:         db.Collection(usersCollection),
		videos:        db.Collection(videosCollection),
		subscriptions: db.Collection(subscriptionsCollection),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the unique identity indexes and the lookup indexes
// the aggregations rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "fullName", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	_, err = s.subscriptions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "channel", Value: 1}}},
		{Keys: bson.D{{Key: "subscriber", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("subscriptions indexes: %w", err)
	}
	return nil
}

// Create inserts the account and sets its ID and timestamps.
func (s *MongoStore) Create(ctx context.Context, acct *models.Account) error {
	now := s.now()
	acct.CreatedAt, acct.UpdatedAt = now, now
	if acct.WatchHistory == nil {
		acct.WatchHistory = []primitive.ObjectID{}
	}
	res, err := s.users.InsertOne(ctx, acct)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("mongo insert: %w", err)
	}
	acct.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID returns the full account, credentials included.
func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return s.findByID(ctx, id)
}

// FindSanitizedByID returns the account without password or refresh token.
func (s *MongoStore) FindSanitizedByID(ctx context.Context, id string) (*models.Account, error) {
	return s.findByID(ctx, id, options.FindOne().SetProjection(sanitizedProjection))
}

func (s *MongoStore) findByID(ctx context.Context, id string, opts ...*options.FindOneOptions) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid}, opts...)
}

// FindByLogin looks an account up by username or email; empty values are ignored.
func (s *MongoStore) FindByLogin(ctx context.Context, username, email string) (*models.Account, error) {
	filter := identityFilter(username, email)
	if filter == nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, filter)
}

// ExistsByIdentity reports whether any account holds the username or email.
func (s *MongoStore) ExistsByIdentity(ctx context.Context, username, email string) (bool, error) {
	filter := identityFilter(username, email)
	if filter == nil {
		return false, nil
	}
	n, err := s.users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongo count: %w", err)
	}
	return n > 0, nil
}

func identityFilter(username, email string) bson.M {
	var or bson.A
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil
	}
	return bson.M{"$or": or}
}

func (s *MongoStore) findOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*models.Account, error) {
	var acct models.Account
	if err := s.users.FindOne(ctx, filter, opts...).Decode(&acct); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	return &acct, nil
}

// SetPassword stores an already-hashed password.
func (s *MongoStore) SetPassword(ctx context.Context, id, hash string) error {
	return s.set(ctx, id, bson.D{{Key: "password", Value: hash}})
}

// SetRefreshToken overwrites the live refresh token.
func (s *MongoStore) SetRefreshToken(ctx context.Context, id, token string) error {
	return s.set(ctx, id, bson.D{{Key: "refreshToken", Value: token}})
}

// SwapRefreshToken replaces current with next only if current is still the
// stored value. It reports false when another rotation got there first.
func (s *MongoStore) SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, ErrNotFound
	}
	filter, update := refreshSwap(oid, current, next, s.now())
	res, err := s.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongo swap refresh token: %w", err)
	}
	return res.MatchedCount == 1, nil
}

// refreshSwap matches the account only while current is still stored, so two
// rotations of the same token cannot both succeed.
func refreshSwap(oid primitive.ObjectID, current, next string, now time.Time) (bson.M, bson.D) {
	return bson.M{"_id": oid, "refreshToken": current},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "refreshToken", Value: next},
			{Key: "updatedAt", Value: now},
		}}}
}

// UnsetRefreshToken removes the refresh token field entirely.
func (s *MongoStore) UnsetRefreshToken(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, refreshUnset(s.now()))
	if err != nil {
		return fmt.Errorf("mongo unset refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func refreshUnset(now time.Time) bson.D {
	return bson.D{
		{Key: "$unset", Value: bson.D{{Key: "refreshToken", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now}}},
	}
}

// UpdateDetails sets full name and email and returns the sanitized account.
func (s *MongoStore) UpdateDetails(ctx context.Context, id, fullName, email string) (*models.Account, error) {
	return s.setAndReturn(ctx, id, bson.D{
		{Key: "fullName", Value: fullName},
		{Key: "email", Value: email},
	})
}

// UpdateAvatar sets the avatar URL and returns the sanitized account.
func (s *MongoStore) UpdateAvatar(ctx context.Context, id, url string) (*models.Account, error) {
	return s.setAndReturn(ctx, id, bson.D{{Key: "avatar", Value: url}})
}

// UpdateCoverImage sets the cover image URL and returns the sanitized account.
func (s *MongoStore) UpdateCoverImage(ctx context.Context, id, url string) (*models.Account, error) {
	return s.setAndReturn(ctx, id, bson.D{{Key: "coverImage", Value: url}})
}

func (s *MongoStore) set(ctx context.Context, id string, fields bson.D) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	fields = append(fields, bson.E{Key: "updatedAt", Value: s.now()})
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("mongo update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) setAndReturn(ctx context.Context, id string, fields bson.D) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	fields = append(fields, bson.E{Key: "updatedAt", Value: s.now()})
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(sanitizedProjection)

	var acct models.Account
	err = s.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.D{{Key: "$set", Value: fields}}, opts).Decode(&acct)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrConflict
	case err != nil:
		return nil, fmt.Errorf("mongo update: %w", err)
	}
	return &acct, nil
}

// ChannelProfile aggregates the public channel view of username as seen by
// requesterID. It returns ErrNotFound when no account has that username.
func (s *MongoStore) ChannelProfile(ctx context.Context, username, requesterID string) (*models.ChannelProfile, error) {
	requester, _ := primitive.ObjectIDFromHex(requesterID)

	cur, err := s.users.Aggregate(ctx, ChannelProfilePipeline(username, requester))
	if err != nil {
		return nil, fmt.Errorf("mongo aggregate channel: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.ChannelProfile
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo decode channel: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

// historyRow is the raw shape of the watch history aggregation.
type historyRow struct {
	WatchHistory []primitive.ObjectID  `bson:"watchHistory"`
	Videos       []models.WatchedVideo `bson:"videos"`
}

// WatchHistory resolves the account's history into videos with their owners,
// in view order, repeats included.
func (s *MongoStore) WatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error) {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, ErrNotFound
	}

	cur, err := s.users.Aggregate(ctx, WatchHistoryPipeline(oid))
	if err != nil {
		return nil, fmt.Errorf("mongo aggregate history: %w", err)
	}
	defer cur.Close(ctx)

	var rows []historyRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("mongo decode history: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return orderHistory(rows[0].WatchHistory, rows[0].Videos), nil
}

// ChannelProfilePipeline joins subscriptions twice: once where the account is
// the channel and once where it is the subscriber.
func ChannelProfilePipeline(username string, requester primitive.ObjectID) mongo.Pipeline {
	return NewPipeline().
		Match(bson.D{{Key: "username", Value: username}}).
		Join(Join{From: subscriptionsCollection, LocalField: "_id", ForeignField: "channel", As: "subscribers"}).
		Join(Join{From: subscriptionsCollection, LocalField: "_id", ForeignField: "subscriber", As: "subscribedTo"}).
		Derive(bson.D{
			{Key: "subscribersCount", Value: Size("subscribers")},
			{Key: "channelsSubscribedToCount", Value: Size("subscribedTo")},
			{Key: "isSubscribed", Value: Contains(requester, "subscribers.subscriber")},
		}).
		Project("fullName", "username", "email", "avatar", "coverImage",
			"subscribersCount", "channelsSubscribedToCount", "isSubscribed").
		Build()
}

// WatchHistoryPipeline resolves history references into videos, each with a
// single embedded owner profile.
func WatchHistoryPipeline(accountID primitive.ObjectID) mongo.Pipeline {
	owner := NewPipeline().Project("fullName", "username", "avatar")
	videos := NewPipeline().
		Join(Join{From: usersCollection, LocalField: "owner", ForeignField: "_id", As: "owner", Pipeline: owner}).
		Derive(bson.D{{Key: "owner", Value: First("owner")}})

	return NewPipeline().
		Match(bson.D{{Key: "_id", Value: accountID}}).
		Join(Join{From: videosCollection, LocalField: "watchHistory", ForeignField: "_id", As: "videos", Pipeline: videos}).
		Project("watchHistory", "videos").
		Build()
}

// orderHistory restores view order; $lookup returns each match once in
// collection order. References to deleted videos are skipped.
func orderHistory(ids []primitive.ObjectID, videos []models.WatchedVideo) []models.WatchedVideo {
	byID := make(map[primitive.ObjectID]models.WatchedVideo, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	out := make([]models.WatchedVideo, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out
}
