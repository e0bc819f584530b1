// Package validate provides the field rules for post input.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/postsync/internal/core/post"
)

const (
	TitleMin   = 3
	TitleMax   = 100
	ContentMin = 10
	AuthorMin  = 2
	AuthorMax  = 50
)

// Title validates a post title is 3 to 100 characters.
func Title(title string) error {
	return length(title, TitleMin, TitleMax)
}

// Content validates post content is at least 10 characters.
func Content(content string) error {
	return length(content, ContentMin, 0)
}

// Author validates an author name is 2 to 50 characters.
func Author(author string) error {
	return length(author, AuthorMin, AuthorMax)
}

// Status validates s is a known status.
func Status(s post.Status) error {
	if !s.IsValid() {
		return fmt.Errorf("must be one of %s", joinStatuses())
	}
	return nil
}

// Input validates every field of a create payload.
func Input(in post.Input) error {
	return criterio.ValidateStruct(
		criterio.Run("title", in.Title, Title),
		criterio.Run("content", in.Content, Content),
		criterio.Run("author", in.Author, Author),
		criterio.Run("status", in.Status, Status),
	)
}

// Patch validates the fields set on a partial update. An empty patch is
// valid.
func Patch(p post.Patch) error {
	var errs criterio.FieldErrorsBuilder

	if p.Title != nil {
		if err := Title(*p.Title); err != nil {
			errs = errs.Append("title", err)
		}
	}
	if p.Content != nil {
		if err := Content(*p.Content); err != nil {
			errs = errs.Append("content", err)
		}
	}
	if p.Author != nil {
		if err := Author(*p.Author); err != nil {
			errs = errs.Append("author", err)
		}
	}
	if p.Status != nil {
		if err := Status(*p.Status); err != nil {
			errs = errs.Append("status", err)
		}
	}

	return errs.ToError()
}

// length checks the trimmed rune count of s. max <= 0 means unbounded.
func length(s string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	switch {
	case n == 0:
		return fmt.Errorf("is required")
	case n < minLen:
		return fmt.Errorf("must be at least %d characters", minLen)
	case maxLen > 0 && n > maxLen:
		return fmt.Errorf("must be at most %d characters", maxLen)
	}
	return nil
}

func joinStatuses() string {
	statuses := post.Statuses()
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
