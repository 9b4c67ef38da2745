package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Video is a document in the videos collection. Only the fields the profile
// queries read are modelled.
type Video struct {
	ID          primitive.ObjectID `json:"_id"         bson:"_id,omitempty"`
	VideoFile   string             `json:"videoFile"   bson:"videoFile"`
	Thumbnail   string             `json:"thumbnail"   bson:"thumbnail"`
	Title       string             `json:"title"       bson:"title"`
	Description string             `json:"description" bson:"description"`
	Duration    float64            `json:"duration"    bson:"duration"`
	Views       int64              `json:"views"       bson:"views"`
	IsPublished bool               `json:"isPublished" bson:"isPublished"`
	CreatedAt   time.Time          `json:"createdAt"   bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"   bson:"updatedAt"`
}

// PublicProfile is the minimal owner projection embedded in history entries.
type PublicProfile struct {
	ID       primitive.ObjectID `json:"_id"      bson:"_id"`
	FullName string             `json:"fullName" bson:"fullName"`
	Username string             `json:"username" bson:"username"`
	Avatar   string             `json:"avatar"   bson:"avatar"`
}

// WatchedVideo is a history entry: a video with its owner resolved.
type WatchedVideo struct {
	Video `bson:",inline"`
	Owner *PublicProfile `json:"owner" bson:"owner,omitempty"`
}

// Subscription links a subscriber account to a channel account.
type Subscription struct {
	ID         primitive.ObjectID `json:"_id"        bson:"_id,omitempty"`
	Subscriber primitive.ObjectID `json:"subscriber" bson:"subscriber"`
	Channel    primitive.ObjectID `json:"channel"    bson:"channel"`
	CreatedAt  time.Time          `json:"createdAt"  bson:"createdAt"`
}

// ChannelProfile is the public view of an account as a channel.
type ChannelProfile struct {
	ID                        primitive.ObjectID `json:"_id"                       bson:"_id"`
	FullName                  string             `json:"fullName"                  bson:"fullName"`
	Username                  string             `json:"username"                  bson:"username"`
	Email                     string             `json:"email"                     bson:"email"`
	Avatar                    string             `json:"avatar"                    bson:"avatar"`
	CoverImage                string             `json:"coverImage"                bson:"coverImage"`
	SubscribersCount          int                `json:"subscribersCount"          bson:"subscribersCount"`
	ChannelsSubscribedToCount int                `json:"channelsSubscribedToCount" bson:"channelsSubscribedToCount"`
	IsSubscribed              bool               `json:"isSubscribed"              bson:"isSubscribed"`
}
