package todos

import (
	"strings"
	"time"

	"go-todo-app/internal/core/domain/validation"
)

// Todo is a single item owned by exactly one user.
type Todo struct {
	ID          string `json:"_id"`
	Text        string `json:"text" validate:"required,min=1"`
	Completed   bool   `json:"completed"`
	CompletedAt *int64 `json:"completedAt"`
	CreatorID   string `json:"_creator" validate:"required"`
}

// New builds an incomplete todo for creatorID. The text is trimmed and
// validated; the id is left for the storage layer to assign.
func New(text, creatorID string) (Todo, error) {
	t := Todo{
		Text:      strings.TrimSpace(text),
		CreatorID: creatorID,
	}
	if err := t.Validate(); err != nil {
		return Todo{}, err
	}
	return t, nil
}

func (t Todo) Validate() error {
	return validation.Struct(t)
}

// Patch is the client-supplied partial update. Fields other than text and
// completed are ignored.
type Patch struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

// Update is the set of field assignments a Patch resolves to. Text is nil
// when the text is left unchanged.
type Update struct {
	Text        *string
	Completed   bool
	CompletedAt *int64
}

type textField struct {
	Text string `json:"text" validate:"required,min=1"`
}

// Resolve turns a patch into concrete assignments. Completing a todo stamps
// CompletedAt with now in epoch milliseconds; anything other than an explicit
// completed=true resets Completed and clears CompletedAt.
func (p Patch) Resolve(now time.Time) (Update, error) {
	var u Update

	if p.Text != nil {
		text := strings.TrimSpace(*p.Text)
		if err := validation.Struct(textField{Text: text}); err != nil {
			return Update{}, err
		}
		u.Text = &text
	}

	if p.Completed != nil && *p.Completed {
		at := now.UnixMilli()
		u.Completed = true
		u.CompletedAt = &at
	}

	return u, nil
}

// Apply writes the update onto t and returns the result.
func (u Update) Apply(t Todo) Todo {
	if u.Text != nil {
		t.Text = *u.Text
	}
	t.Completed = u.Completed
	t.CompletedAt = u.CompletedAt
	return t
}
