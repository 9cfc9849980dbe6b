package mongorepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/onboardhq/sharefile-connect/credential"
	"github.com/onboardhq/sharefile-connect/internal/errors"
)

var _ credential.Repo = (*MongoCredentialRepo)(nil)

// MongoCredentialRepo is a MongoDB-backed implementation of
// credential.Repo. Uniqueness of the active organization-wide record is
// enforced at the application layer: deactivate-then-insert, with a
// post-insert count check to detect a raced replacement.
type MongoCredentialRepo struct {
	creds *mongo.Collection
}

// NewMongoCredentialRepo creates a new repo backed by the given DB.
func NewMongoCredentialRepo(db *mongo.Database) *MongoCredentialRepo {
	return &MongoCredentialRepo{
		creds: db.Collection("sharefile_credentials"),
	}
}

type credentialDoc struct {
	ID              string    `bson:"_id"`
	AccessToken     string    `bson:"access_token"`
	RefreshToken    string    `bson:"refresh_token,omitempty"`
	Subdomain       string    `bson:"subdomain"`
	APIControlPlane string    `bson:"apicp"`
	AppControlPlane string    `bson:"appcp,omitempty"`
	Scope           string    `bson:"scope"`
	OwnerUserID     string    `bson:"owner_user_id,omitempty"`
	CreatedByUserID string    `bson:"created_by_user_id,omitempty"`
	Active          bool      `bson:"active"`
	AutoRefresh     bool      `bson:"auto_refresh"`
	ExpiresAt       time.Time `bson:"expires_at,omitempty"`
	LastRefreshedAt time.Time `bson:"last_refreshed_at,omitempty"`
	RefreshCount    int       `bson:"refresh_count"`
	FailureCount    int       `bson:"failure_count"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

var orgActiveFilter = bson.M{"scope": string(credential.ScopeOrganizationWide), "active": true}

func (r *MongoCredentialRepo) ActiveOrganization(ctx context.Context) (*credential.Credential, error) {
	var doc credentialDoc
	err := r.creds.FindOne(ctx, orgActiveFilter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrCredentialNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find active organization credential")
	}
	return fromDoc(&doc), nil
}

func (r *MongoCredentialRepo) LatestOrganization(ctx context.Context) (*credential.Credential, error) {
	var doc credentialDoc
	err := r.creds.FindOne(ctx,
		bson.M{"scope": string(credential.ScopeOrganizationWide)},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrCredentialNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find latest organization credential")
	}
	return fromDoc(&doc), nil
}

func (r *MongoCredentialRepo) Get(ctx context.Context, id string) (*credential.Credential, error) {
	var doc credentialDoc
	err := r.creds.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrCredentialNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find credential %s", id)
	}
	return fromDoc(&doc), nil
}

func (r *MongoCredentialRepo) ReplaceOrganization(ctx context.Context, cred *credential.Credential) (*credential.Credential, error) {
	now := credential.NowTimeFunc().UTC()

	// Deactivate first, then insert: a reader in between sees zero
	// active records, never two.
	_, err := r.creds.UpdateMany(ctx, orgActiveFilter, bson.M{"$set": bson.M{
		"active":       false,
		"auto_refresh": false,
		"updated_at":   now,
	}})
	if err != nil {
		return nil, errors.Wrapf(err, "deactivate previous organization credential")
	}

	if _, err := r.creds.InsertOne(ctx, toDoc(cred)); err != nil {
		return nil, errors.Wrapf(err, "insert organization credential")
	}

	// A concurrent replace may have inserted its own active record
	// between our two steps. Yield to it by withdrawing ours.
	count, err := r.creds.CountDocuments(ctx, orgActiveFilter)
	if err == nil && count > 1 {
		_, _ = r.creds.UpdateOne(ctx, bson.M{"_id": cred.ID}, bson.M{"$set": bson.M{
			"active":       false,
			"auto_refresh": false,
			"updated_at":   credential.NowTimeFunc().UTC(),
		}})
		return nil, errors.ErrConflict
	}

	return r.Get(ctx, cred.ID)
}

func (r *MongoCredentialRepo) ApplyRefreshResult(ctx context.Context, id, newAccessToken, newRefreshToken string, expiresAt time.Time) (*credential.Credential, error) {
	now := credential.NowTimeFunc().UTC()
	set := bson.M{
		"access_token":      newAccessToken,
		"expires_at":        expiresAt,
		"last_refreshed_at": now,
		"failure_count":     0,
		"updated_at":        now,
	}
	if newRefreshToken != "" {
		set["refresh_token"] = newRefreshToken
	}

	var doc credentialDoc
	err := r.creds.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set, "$inc": bson.M{"refresh_count": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrCredentialNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "apply refresh result %s", id)
	}
	return fromDoc(&doc), nil
}

func (r *MongoCredentialRepo) MarkFailure(ctx context.Context, id string, maxFailures int) (*credential.Credential, error) {
	now := credential.NowTimeFunc().UTC()

	var doc credentialDoc
	err := r.creds.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"failure_count": 1}, "$set": bson.M{"updated_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrCredentialNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "mark failure %s", id)
	}

	if doc.FailureCount > maxFailures && doc.Active {
		err = r.creds.FindOneAndUpdate(ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"active": false, "auto_refresh": false, "updated_at": now}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&doc)
		if err != nil {
			return nil, errors.Wrapf(err, "deactivate credential %s", id)
		}
	}
	return fromDoc(&doc), nil
}

func toDoc(c *credential.Credential) *credentialDoc {
	return &credentialDoc{
		ID:              c.ID,
		AccessToken:     c.AccessToken,
		RefreshToken:    c.RefreshToken,
		Subdomain:       c.Subdomain,
		APIControlPlane: c.APIControlPlane,
		AppControlPlane: c.AppControlPlane,
		Scope:           string(c.Scope),
		OwnerUserID:     c.OwnerUserID,
		CreatedByUserID: c.CreatedByUserID,
		Active:          c.Active,
		AutoRefresh:     c.AutoRefresh,
		ExpiresAt:       c.ExpiresAt,
		LastRefreshedAt: c.LastRefreshedAt,
		RefreshCount:    c.RefreshCount,
		FailureCount:    c.FailureCount,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func fromDoc(d *credentialDoc) *credential.Credential {
	return &credential.Credential{
		ID:              d.ID,
		AccessToken:     d.AccessToken,
		RefreshToken:    d.RefreshToken,
		Subdomain:       d.Subdomain,
		APIControlPlane: d.APIControlPlane,
		AppControlPlane: d.AppControlPlane,
		Scope:           credential.Scope(d.Scope),
		OwnerUserID:     d.OwnerUserID,
		CreatedByUserID: d.CreatedByUserID,
		Active:          d.Active,
		AutoRefresh:     d.AutoRefresh,
		ExpiresAt:       d.ExpiresAt,
		LastRefreshedAt: d.LastRefreshedAt,
		RefreshCount:    d.RefreshCount,
		FailureCount:    d.FailureCount,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}
