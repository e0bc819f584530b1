package post

// Filter narrows a collection by author and status. Empty fields match
// everything; set fields are combined with AND.
type Filter struct {
	Author string
	Status Status
}

// IsZero reports whether the filter matches every post.
func (f Filter) IsZero() bool {
	return f.Author == "" && f.Status == ""
}

// Match reports whether p satisfies the filter.
func (f Filter) Match(p Post) bool {
	if f.Author != "" && p.Author != f.Author {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}

// Apply returns the posts that satisfy the filter, preserving order.
func (f Filter) Apply(posts []Post) []Post {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Authors returns the unique authors of posts in first-seen order.
func Authors(posts []Post) []string {
	seen := make(map[string]struct{}, len(posts))
	out := make([]string, 0)
	for _, p := range posts {
		if _, ok := seen[p.Author]; ok {
			continue
		}
		seen[p.Author] = struct{}{}
		out = append(out, p.Author)
	}
	return out
}
