// Package memory is an in-process implementation of the storage ports,
// used for local development and for exercising the HTTP layer in tests.
package memory

import (
	"context"
	"iter"
	"sync"

	"github.com/google/uuid"

	"go-todo-app/internal/core/domain/auth"
	"go-todo-app/internal/core/domain/todos"
	"go-todo-app/internal/core/ports"
)

// Store holds users and todos behind one mutex so each operation is atomic.
type Store struct {
	mu        sync.RWMutex
	users     map[string]auth.User
	emails    map[string]string
	todos     map[string]todos.Todo
	todoOrder []string
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]auth.User),
		emails: make(map[string]string),
		todos:  make(map[string]todos.Todo),
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Todos returns the todo repository view of the store.
func (s *Store) Todos() *TodoRepository { return &TodoRepository{s: s} }

var (
	_ ports.UserRepository = (*UserRepository)(nil)
	_ ports.TodoRepository = (*TodoRepository)(nil)
)

// validID mirrors the uniform "malformed id is not found" rule of the other
// backends.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(ctx context.Context, user auth.User) (auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.emails[user.Email]; ok {
		return auth.User{}, ports.ErrDuplicateEmail
	}
	user.ID = uuid.NewString()
	user.Tokens = cloneTokens(user.Tokens)
	r.s.users[user.ID] = user
	r.s.emails[user.Email] = user.ID
	return copyUser(user), nil
}

func (r *UserRepository) findByID(ctx context.Context, id string) (auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return auth.User{}, ports.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[email]
	if !ok {
		return auth.User{}, ports.ErrNotFound
	}
	return copyUser(r.s.users[id]), nil
}

func (r *UserRepository) FindByToken(ctx context.Context, id, access, token string) (auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok || !u.HasToken(access, token) {
		return auth.User{}, ports.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) PushToken(ctx context.Context, id string, token auth.Token) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return ports.ErrNotFound
	}
	u.Tokens = append(cloneTokens(u.Tokens), token)
	r.s.users[id] = u
	return nil
}

func (r *UserRepository) PullToken(ctx context.Context, id, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil
	}
	u.Tokens = u.WithoutToken(token)
	r.s.users[id] = u
	return nil
}

type TodoRepository struct {
	s *Store
}

func (r *TodoRepository) Create(ctx context.Context, todo todos.Todo) (todos.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	todo.ID = uuid.NewString()
	r.s.todos[todo.ID] = todo
	r.s.todoOrder = append(r.s.todoOrder, todo.ID)
	return todo, nil
}

// FindByOwner snapshots the owner's todos so iteration never holds the lock.
func (r *TodoRepository) FindByOwner(ctx context.Context, ownerID string) (iter.Seq2[todos.Todo, error], error) {
	r.s.mu.RLock()
	var owned []todos.Todo
	for _, id := range r.s.todoOrder {
		if t, ok := r.s.todos[id]; ok && t.CreatorID == ownerID {
			owned = append(owned, t)
		}
	}
	r.s.mu.RUnlock()

	return func(yield func(todos.Todo, error) bool) {
		for _, t := range owned {
			if err := ctx.Err(); err != nil {
				yield(todos.Todo{}, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}, nil
}

func (r *TodoRepository) FindOne(ctx context.Context, id, ownerID string) (todos.Todo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.owned(id, ownerID)
}

func (r *TodoRepository) DeleteOne(ctx context.Context, id, ownerID string) (todos.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, err := r.owned(id, ownerID)
	if err != nil {
		return todos.Todo{}, err
	}
	delete(r.s.todos, id)
	for i, tid := range r.s.todoOrder {
		if tid == id {
			r.s.todoOrder = append(r.s.todoOrder[:i], r.s.todoOrder[i+1:]...)
			break
		}
	}
	return t, nil
}

func (r *TodoRepository) UpdateOne(ctx context.Context, id, ownerID string, update todos.Update) (todos.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, err := r.owned(id, ownerID)
	if err != nil {
		return todos.Todo{}, err
	}
	t = update.Apply(t)
	r.s.todos[id] = t
	return t, nil
}

// owned must be called with the lock held.
func (r *TodoRepository) owned(id, ownerID string) (todos.Todo, error) {
	if !validID(id) {
		return todos.Todo{}, ports.ErrNotFound
	}
	t, ok := r.s.todos[id]
	if !ok || t.CreatorID != ownerID {
		return todos.Todo{}, ports.ErrNotFound
	}
	return t, nil
}

func copyUser(u auth.User) auth.User {
	u.Tokens = cloneTokens(u.Tokens)
	return u
}

func cloneTokens(in []auth.Token) []auth.Token {
	if in == nil {
		return nil
	}
	out := make([]auth.Token, len(in))
	copy(out, in)
	return out
}
