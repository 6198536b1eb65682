package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParentRef points a comment at either root content or another comment.
// The zero value is invalid.
type ParentRef struct {
	category Category // root category; zero for comment refs
	id       int64
}

// RootRef references root content of the given category.
func RootRef(category Category, id int64) ParentRef {
	return ParentRef{category: category, id: id}
}

// CommentRef references another comment.
func CommentRef(id int64) ParentRef {
	return ParentRef{id: id}
}

// IsRoot reports whether the reference targets root content.
func (r ParentRef) IsRoot() bool { return r.category != 0 }

// IsZero reports whether r is the zero reference.
func (r ParentRef) IsZero() bool { return r.category == 0 && r.id == 0 }

// Category returns the root category, or zero for comment refs.
func (r ParentRef) Category() Category { return r.category }

// ID returns the referenced content or comment id.
func (r ParentRef) ID() int64 { return r.id }

// Valid reports whether r is well formed.
func (r ParentRef) Valid() bool {
	if r.id <= 0 {
		return false
	}
	if r.category == 0 {
		return true
	}
	return r.category.IsRoot()
}

// String renders "question:42" for root refs and "17" for comment refs.
func (r ParentRef) String() string {
	if r.IsRoot() {
		return r.category.String() + ":" + strconv.FormatInt(r.id, 10)
	}
	return strconv.FormatInt(r.id, 10)
}

// ParseParentRef is the inverse of String. It is only used at the API edge.
func ParseParentRef(s string) (ParentRef, error) {
	s = strings.TrimSpace(s)
	kind, rawID, hasKind := strings.Cut(s, ":")
	if !hasKind {
		rawID = kind
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return ParentRef{}, fmt.Errorf("invalid parent reference %q", s)
	}
	if !hasKind {
		return CommentRef(id), nil
	}
	c, err := ParseCategory(kind)
	if err != nil {
		return ParentRef{}, fmt.Errorf("invalid parent reference %q: %w", s, err)
	}
	if !c.IsRoot() {
		return ParentRef{}, fmt.Errorf("invalid parent reference %q: %s is not root content", s, c)
	}
	return RootRef(c, id), nil
}

func (r ParentRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *ParentRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseParentRef(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
