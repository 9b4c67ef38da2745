package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestRefreshSwap(t *testing.T) {
	t.Parallel()

	oid := primitive.NewObjectID()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	filter, update := refreshSwap(oid, "old-token", "new-token", now)

	require.Equal(t, bson.M{"_id": oid, "refreshToken": "old-token"}, filter)
	require.Equal(t, bson.D{{Key: "$set", Value: bson.D{
		{Key: "refreshToken", Value: "new-token"},
		{Key: "updatedAt", Value: now},
	}}}, update)
}

func TestRefreshUnset(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	update := refreshUnset(now)

	require.Len(t, update, 2)
	require.Equal(t, "$unset", update[0].Key)
	require.Equal(t, bson.D{{Key: "refreshToken", Value: 1}}, update[0].Value)
	require.Equal(t, "$set", update[1].Key)
	require.Equal(t, bson.D{{Key: "updatedAt", Value: now}}, update[1].Value)
}

func updateReply(matched int) bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: matched},
		bson.E{Key: "nModified", Value: matched},
	)
}

func TestRefreshTokenWrites(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	id := primitive.NewObjectID().Hex()

	mt.Run("swap matches the stored token", func(mt *mtest.T) {
		mt.AddMockResponses(updateReply(1))
		swapped, err := NewMongoStore(mt.DB).SwapRefreshToken(context.Background(), id, "old", "new")
		require.NoError(mt, err)
		require.True(mt, swapped)
	})

	mt.Run("swap lost to another rotation", func(mt *mtest.T) {
		mt.AddMockResponses(updateReply(0))
		swapped, err := NewMongoStore(mt.DB).SwapRefreshToken(context.Background(), id, "old", "new")
		require.NoError(mt, err)
		require.False(mt, swapped)
	})

	mt.Run("swap with a malformed id", func(mt *mtest.T) {
		_, err := NewMongoStore(mt.DB).SwapRefreshToken(context.Background(), "nope", "old", "new")
		require.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("swap command failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 11600, Name: "InterruptedAtShutdown", Message: "shutting down",
		}))
		_, err := NewMongoStore(mt.DB).SwapRefreshToken(context.Background(), id, "old", "new")
		require.Error(mt, err)
		require.NotErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("unset on a known account", func(mt *mtest.T) {
		mt.AddMockResponses(updateReply(1))
		require.NoError(mt, NewMongoStore(mt.DB).UnsetRefreshToken(context.Background(), id))
	})

	mt.Run("unset on an unknown account", func(mt *mtest.T) {
		mt.AddMockResponses(updateReply(0))
		err := NewMongoStore(mt.DB).UnsetRefreshToken(context.Background(), id)
		require.ErrorIs(mt, err, ErrNotFound)
	})
}
