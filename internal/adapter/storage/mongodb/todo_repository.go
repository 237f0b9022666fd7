package mongodb

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go-todo-app/internal/core/domain/todos"
	"go-todo-app/internal/core/ports"
)

var _ ports.TodoRepository = (*TodoRepository)(nil)

type TodoRepository struct {
	coll *mongo.Collection
}

type todoDocument struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Text        string        `bson:"text"`
	Completed   bool          `bson:"completed"`
	CompletedAt *int64        `bson:"completedAt"`
	Creator     bson.ObjectID `bson:"_creator"`
}

func (d todoDocument) toDomain() todos.Todo {
	return todos.Todo{
		ID:          d.ID.Hex(),
		Text:        d.Text,
		Completed:   d.Completed,
		CompletedAt: d.CompletedAt,
		CreatorID:   d.Creator.Hex(),
	}
}

func (r *TodoRepository) Create(ctx context.Context, todo todos.Todo) (todos.Todo, error) {
	creator, err := bson.ObjectIDFromHex(todo.CreatorID)
	if err != nil {
		return todos.Todo{}, fmt.Errorf("invalid creator id %q: %w", todo.CreatorID, err)
	}

	doc := todoDocument{
		Text:        todo.Text,
		Completed:   todo.Completed,
		CompletedAt: todo.CompletedAt,
		Creator:     creator,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return todos.Todo{}, fmt.Errorf("failed to insert todo: %w", err)
	}

	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return todos.Todo{}, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	doc.ID = id
	return doc.toDomain(), nil
}

// FindByOwner streams the owner's todos ordered by id, which for ObjectIDs
// is creation order.
func (r *TodoRepository) FindByOwner(ctx context.Context, ownerID string) (iter.Seq2[todos.Todo, error], error) {
	creator, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return func(yield func(todos.Todo, error) bool) {}, nil
	}

	cursor, err := r.coll.Find(ctx,
		bson.M{"_creator": creator},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}

	return func(yield func(todos.Todo, error) bool) {
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var doc todoDocument
			if err := cursor.Decode(&doc); err != nil {
				yield(todos.Todo{}, fmt.Errorf("failed to decode todo: %w", err))
				return
			}
			if !yield(doc.toDomain(), nil) {
				return
			}
		}

		if err := cursor.Err(); err != nil {
			yield(todos.Todo{}, fmt.Errorf("cursor iteration error: %w", err))
		}
	}, nil
}

func (r *TodoRepository) FindOne(ctx context.Context, id, ownerID string) (todos.Todo, error) {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return todos.Todo{}, ports.ErrNotFound
	}
	return decodeTodo(r.coll.FindOne(ctx, filter))
}

func (r *TodoRepository) DeleteOne(ctx context.Context, id, ownerID string) (todos.Todo, error) {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return todos.Todo{}, ports.ErrNotFound
	}
	return decodeTodo(r.coll.FindOneAndDelete(ctx, filter))
}

func (r *TodoRepository) UpdateOne(ctx context.Context, id, ownerID string, update todos.Update) (todos.Todo, error) {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return todos.Todo{}, ports.ErrNotFound
	}

	set := bson.M{
		"completed":   update.Completed,
		"completedAt": update.CompletedAt,
	}
	if update.Text != nil {
		set["text"] = *update.Text
	}

	return decodeTodo(r.coll.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	))
}

// ownedFilter matches a todo by id and owner. Malformed ids yield ok=false so
// callers answer exactly as for a missing record.
func ownedFilter(id, ownerID string) (bson.M, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	creator, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "_creator": creator}, true
}

func decodeTodo(res *mongo.SingleResult) (todos.Todo, error) {
	var doc todoDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return todos.Todo{}, ports.ErrNotFound
		}
		return todos.Todo{}, fmt.Errorf("failed to decode todo: %w", err)
	}
	return doc.toDomain(), nil
}
