package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Category discriminates content kinds and the rows a ledger entry targets.
// The numeric codes are persisted and must never be renumbered.
type Category int16

const (
	CategoryPost              Category = 1
	CategoryQuestion          Category = 2
	CategoryQuestionComment   Category = 3
	CategoryDiscussion        Category = 4
	CategoryDiscussionComment Category = 5
)

// Categories lists every valid category in code order.
var Categories = []Category{
	CategoryPost,
	CategoryQuestion,
	CategoryQuestionComment,
	CategoryDiscussion,
	CategoryDiscussionComment,
}

var categoryNames = map[Category]string{
	CategoryPost:              "post",
	CategoryQuestion:          "question",
	CategoryQuestionComment:   "question_comment",
	CategoryDiscussion:        "discussion",
	CategoryDiscussionComment: "discussion_comment",
}

// Valid reports whether c is one of the known codes.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// IsRoot reports whether c is a root content kind (post, question, discussion).
func (c Category) IsRoot() bool {
	return c == CategoryPost || c == CategoryQuestion || c == CategoryDiscussion
}

// IsComment reports whether c is a comment kind.
func (c Category) IsComment() bool {
	return c == CategoryQuestionComment || c == CategoryDiscussionComment
}

// CommentCategory returns the category of comments under a root of kind c.
// Posts have no comment thread.
func (c Category) CommentCategory() (Category, bool) {
	switch c {
	case CategoryQuestion:
		return CategoryQuestionComment, true
	case CategoryDiscussion:
		return CategoryDiscussionComment, true
	default:
		return 0, false
	}
}

// Table returns the content table of a root category.
func (c Category) Table() string {
	switch c {
	case CategoryPost:
		return "posts"
	case CategoryQuestion:
		return "questions"
	case CategoryDiscussion:
		return "discussions"
	default:
		return ""
	}
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(c)) + ")"
}

// ParseCategory accepts either the name ("question") or the numeric code ("2").
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(s); err == nil {
		c := Category(n)
		if c.Valid() {
			return c, nil
		}
		return 0, fmt.Errorf("unknown category code %d", n)
	}
	s = strings.ReplaceAll(s, "-", "_")
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// MarshalText renders the category name.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", int16(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText accepts names and numeric codes.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
