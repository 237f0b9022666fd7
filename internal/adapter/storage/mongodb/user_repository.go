package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"go-todo-app/internal/core/domain/auth"
	"go-todo-app/internal/core/ports"
)

var _ ports.UserRepository = (*UserRepository)(nil)

type UserRepository struct {
	coll *mongo.Collection
}

type tokenDocument struct {
	Access string `bson:"access"`
	Token  string `bson:"token"`
}

type userDocument struct {
	ID       bson.ObjectID   `bson:"_id,omitempty"`
	Email    string          `bson:"email"`
	Password string          `bson:"password"`
	Tokens   []tokenDocument `bson:"tokens"`
}

func (d userDocument) toDomain() auth.User {
	u := auth.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.Password,
	}
	for _, t := range d.Tokens {
		u.Tokens = append(u.Tokens, auth.Token{Access: t.Access, Token: t.Token})
	}
	return u
}

// Create stores a new user. The token list is always written as an array so
// later $push updates never hit a null field.
func (r *UserRepository) Create(ctx context.Context, user auth.User) (auth.User, error) {
	doc := userDocument{
		Email:    user.Email,
		Password: user.PasswordHash,
		Tokens:   make([]tokenDocument, 0, len(user.Tokens)),
	}
	for _, t := range user.Tokens {
		doc.Tokens = append(doc.Tokens, tokenDocument{Access: t.Access, Token: t.Token})
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return auth.User{}, ports.ErrDuplicateEmail
		}
		return auth.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return auth.User{}, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	doc.ID = id
	return doc.toDomain(), nil
}

func (r *UserRepository) findByID(ctx context.Context, id string) (auth.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return auth.User{}, ports.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (auth.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByToken(ctx context.Context, id, access, token string) (auth.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return auth.User{}, ports.ErrNotFound
	}
	return r.findOne(ctx, bson.M{
		"_id": oid,
		"tokens": bson.M{"$elemMatch": bson.M{
			"access": access,
			"token":  token,
		}},
	})
}

func (r *UserRepository) PushToken(ctx context.Context, id string, token auth.Token) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ports.ErrNotFound
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"tokens": tokenDocument{Access: token.Access, Token: token.Token}}},
	)
	if err != nil {
		return fmt.Errorf("failed to push token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *UserRepository) PullToken(ctx context.Context, id, token string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}

	_, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"tokens": bson.M{"token": token}}},
	)
	if err != nil {
		return fmt.Errorf("failed to pull token: %w", err)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (auth.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return auth.User{}, ports.ErrNotFound
		}
		return auth.User{}, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toDomain(), nil
}
