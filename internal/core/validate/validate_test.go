package validate

import (
	"strings"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/postsync/internal/core/post"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "Hello", false},
		{"minimum", "abc", false},
		{"maximum", strings.Repeat("a", 100), false},
		{"empty", "", true},
		{"only spaces", "   ", true},
		{"too short", "ab", true},
		{"too short after trim", "  ab  ", true},
		{"too long", strings.Repeat("a", 101), true},
		{"multibyte counts runes", "日本語", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Title(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "Title(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		})
	}
}

func TestContent(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "long enough content", false},
		{"minimum", "0123456789", false},
		{"too short", "short", true},
		{"no maximum", strings.Repeat("x", 10_000), false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Content(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "Content(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		})
	}
}

func TestAuthor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "Ana", false},
		{"minimum", "Bo", false},
		{"too short", "A", true},
		{"too long", strings.Repeat("a", 51), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Author(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "Author(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		})
	}
}

func TestStatus(t *testing.T) {
	for _, s := range post.Statuses() {
		assert.NoError(t, Status(s))
	}

	err := Status("deleted")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "draft, published, archived")
}

func TestInput(t *testing.T) {
	valid := post.Input{Title: "T title", Content: "Content text", Author: "Ana", Status: post.StatusDraft}
	require.NoError(t, Input(valid))

	err := Input(post.Input{Title: "T", Content: "C", Author: "A", Status: "bogus"})

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 4)

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"title", "content", "author", "status"}, fields)
}

func TestPatch(t *testing.T) {
	str := func(s string) *string { return &s }
	status := func(s post.Status) *post.Status { return &s }

	require.NoError(t, Patch(post.Patch{}))
	require.NoError(t, Patch(post.Patch{Title: str("New title")}))

	err := Patch(post.Patch{Title: str("x"), Status: status("nope")})

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 2)
	assert.Equal(t, "title", fieldErrs[0].Field)
	assert.Equal(t, "status", fieldErrs[1].Field)
}
