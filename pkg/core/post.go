package core

import (
	"sort"
	"strings"
	"time"
)

// Metadata represents the front matter key-value pairs of a post.
type Metadata map[string]any

// Well-known front matter keys.
const (
	KeyTitle  = "title"
	KeyDate   = "date"
	KeyTags   = "tags"
	KeyDraft  = "draft"
	KeySeries = "series"
)

// DateLayouts are the accepted front matter date formats, tried in order.
var DateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
}

// Post is the central entity of the domain: a blog article identified by its
// slug. It is agnostic to storage format; the front matter lives in Metadata
// and the Markdown body in Content.
type Post struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Title returns the post's title, or "" when absent.
func (p Post) Title() string {
	if s, ok := p.Metadata[KeyTitle].(string); ok {
		return s
	}
	return ""
}

// Tags returns the post's tags normalized: lower-cased, de-duplicated and
// sorted. YAML decoding may yield []any, []string or a bare scalar; all
// three forms are accepted. Returns nil when there are no tags.
func (p Post) Tags() []string {
	raw, ok := p.Metadata[KeyTags]
	if !ok {
		return nil
	}

	var tags []string
	switch v := raw.(type) {
	case []string:
		tags = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
	case string:
		tags = []string{v}
	}

	seen := make(map[string]bool, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Draft reports whether the post is a draft. Posts are published by default.
func (p Post) Draft() bool {
	b, _ := p.Metadata[KeyDraft].(bool)
	return b
}

// Series returns the series the post belongs to, or "" when absent.
func (p Post) Series() string {
	if s, ok := p.Metadata[KeySeries].(string); ok {
		return s
	}
	return ""
}

// Date returns the post's publication date. YAML may decode the value as a
// time.Time directly or leave it as a string in one of DateLayouts.
func (p Post) Date() (time.Time, bool) {
	switch v := p.Metadata[KeyDate].(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range DateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
