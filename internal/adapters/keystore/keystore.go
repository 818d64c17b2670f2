// Package keystore validates application and access keys. Key issuance
// lives in the REST API; the broker only verifies already-issued keys.
package keystore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/frostlabs/pulse/internal/domain"
	"github.com/frostlabs/pulse/internal/domain/ports"
)

// Key format: "<ownerId>-<hash>".
const keySeparator = "-"

// SplitKey splits a key into its owner id and hash parts.
func SplitKey(key string) (ownerID, hash string, err error) {
	idx := strings.Index(key, keySeparator)
	if idx <= 0 || idx == len(key)-1 {
		return "", "", fmt.Errorf("malformed key")
	}
	return key[:idx], key[idx+1:], nil
}

// HashKey computes the stored digest for a key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// MongoAuthenticator implements ports.Authenticator against the
// applications and applicationAccesses collections.
type MongoAuthenticator struct {
	applications *mongo.Collection
	accesses     *mongo.Collection
}

// NewMongoAuthenticator creates an authenticator on the given database.
func NewMongoAuthenticator(db *mongo.Database) *MongoAuthenticator {
	return &MongoAuthenticator{
		applications: db.Collection("applications"),
		accesses:     db.Collection("applicationAccesses"),
	}
}

type applicationDoc struct {
	ID      string `bson:"_id"`
	KeyHash string `bson:"keyHash"`
}

type accessDoc struct {
	UserID  string `bson:"userId"`
	KeyHash string `bson:"keyHash"`
}

// VerifyAccess validates both keys and returns the authenticated principal.
func (a *MongoAuthenticator) VerifyAccess(ctx context.Context, applicationKey, accessKey string) (ports.Principal, error) {
	if applicationKey == "" {
		return ports.Principal{}, fmt.Errorf("%w: applicationKey parameter is empty", domain.ErrInvalidAppKey)
	}
	if accessKey == "" {
		return ports.Principal{}, fmt.Errorf("%w: accessKey parameter is empty", domain.ErrInvalidAccessKey)
	}

	appID, err := a.verifyApplicationKey(ctx, applicationKey)
	if err != nil {
		return ports.Principal{}, err
	}
	userID, err := a.verifyAccessKey(ctx, accessKey)
	if err != nil {
		return ports.Principal{}, err
	}

	return ports.Principal{ApplicationID: appID, UserID: userID}, nil
}

func (a *MongoAuthenticator) verifyApplicationKey(ctx context.Context, key string) (string, error) {
	appID, _, err := SplitKey(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidAppKey, err)
	}

	var doc applicationDoc
	err = a.applications.FindOne(ctx, bson.D{{Key: "_id", Value: appID}}).Decode(&doc)
	if err != nil {
		return "", fmt.Errorf("%w: unknown application", domain.ErrInvalidAppKey)
	}
	if doc.KeyHash != HashKey(key) {
		return "", domain.ErrInvalidAppKey
	}
	return appID, nil
}

func (a *MongoAuthenticator) verifyAccessKey(ctx context.Context, key string) (string, error) {
	userID, _, err := SplitKey(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidAccessKey, err)
	}

	var doc accessDoc
	err = a.accesses.FindOne(ctx, bson.D{{Key: "userId", Value: userID}}).Decode(&doc)
	if err != nil {
		return "", fmt.Errorf("%w: unknown user", domain.ErrInvalidAccessKey)
	}
	if doc.KeyHash != HashKey(key) {
		return "", domain.ErrInvalidAccessKey
	}
	return doc.UserID, nil
}

// TrustedAuthenticator accepts any connection and takes the user id from
// the access key verbatim. For development and tests only.
type TrustedAuthenticator struct{}

// VerifyAccess returns a principal without validating keys.
func (TrustedAuthenticator) VerifyAccess(ctx context.Context, applicationKey, accessKey string) (ports.Principal, error) {
	if accessKey == "" {
		return ports.Principal{}, fmt.Errorf("%w: accessKey parameter is empty", domain.ErrInvalidAccessKey)
	}
	return ports.Principal{ApplicationID: applicationKey, UserID: accessKey}, nil
}
