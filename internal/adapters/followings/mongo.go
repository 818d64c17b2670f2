// Package followings resolves the social graph from MongoDB for timeline
// composition.
package followings

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const collectionName = "followings"

// following is one edge of the follow graph.
type following struct {
	Source string `bson:"source"`
	Target string `bson:"target"`
}

// MongoResolver implements ports.FollowingResolver against a followings
// collection.
type MongoResolver struct {
	coll *mongo.Collection
}

// NewMongoResolver creates a resolver on the given database.
func NewMongoResolver(db *mongo.Database) *MongoResolver {
	return &MongoResolver{coll: db.Collection(collectionName)}
}

// FindTargets returns the ids of users that userID follows, most recent
// edge first.
func (r *MongoResolver) FindTargets(ctx context.Context, userID string) ([]string, error) {
	cursor, err := r.coll.Find(ctx,
		bson.D{{Key: "source", Value: userID}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find followings for %q: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var edges []following
	if err := cursor.All(ctx, &edges); err != nil {
		return nil, fmt.Errorf("decode followings for %q: %w", userID, err)
	}

	targets := make([]string, 0, len(edges))
	for _, edge := range edges {
		targets = append(targets, edge.Target)
	}
	return targets, nil
}
