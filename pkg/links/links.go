// Package links extracts Markdown links from post bodies and audits the
// internal ones against the site's content. External links are classified
// but never fetched.
package links

import (
	"path"
	"regexp"
	"strings"

	"github.com/aretw0/mulch/pkg/core"
)

// Link is a single extracted link occurrence.
type Link struct {
	Slug     string // post the link appears in
	Line     int    // 1-based line number
	Text     string
	Target   string
	External bool
}

// Issue is a broken link found during an audit.
type Issue struct {
	Link
	Reason string
}

var (
	// [text](target) inline links; images share the syntax with a leading
	// bang, which the capture tolerates.
	inlineLink = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)

	// [ref]: target, reference-style definitions at line start.
	refDef = regexp.MustCompile(`^\s*\[([^\]]+)\]:\s+(\S+)`)
)

// IsExternal reports whether a link target points outside the site.
func IsExternal(target string) bool {
	for _, scheme := range []string{"http://", "https://", "mailto:", "ftp://"} {
		if strings.HasPrefix(target, scheme) {
			return true
		}
	}
	return strings.HasPrefix(target, "//")
}

// Extract returns all links found in a post's body, in document order.
func Extract(p core.Post) []Link {
	var out []Link

	for i, line := range strings.Split(p.Content, "\n") {
		lineNo := i + 1

		for _, m := range inlineLink.FindAllStringSubmatch(line, -1) {
			out = append(out, Link{
				Slug:     p.ID,
				Line:     lineNo,
				Text:     m[1],
				Target:   m[2],
				External: IsExternal(m[2]),
			})
		}

		if m := refDef.FindStringSubmatch(line); m != nil {
			out = append(out, Link{
				Slug:     p.ID,
				Line:     lineNo,
				Text:     m[1],
				Target:   m[2],
				External: IsExternal(m[2]),
			})
		}
	}

	return out
}

// Audit verifies every internal link in the given posts resolves to another
// post. Anchors and query strings are stripped before resolution; targets
// are resolved relative to the linking post's directory as well as the site
// root, mirroring how static-site generators treat relative links.
func Audit(posts []core.Post) []Issue {
	known := make(map[string]bool, len(posts))
	for _, p := range posts {
		known[p.ID] = true
	}

	var issues []Issue
	for _, p := range posts {
		for _, link := range Extract(p) {
			if link.External {
				continue
			}
			target := normalize(link.Target)
			if target == "" {
				// Pure anchor ("#section") always refers to the same post.
				continue
			}
			if !resolves(target, p.ID, known) {
				issues = append(issues, Issue{
					Link:   link,
					Reason: "target does not resolve to a known post",
				})
			}
		}
	}
	return issues
}

// normalize strips anchors, query strings, and the markdown extension.
func normalize(target string) string {
	if i := strings.IndexAny(target, "#?"); i >= 0 {
		target = target[:i]
	}
	target = strings.TrimSuffix(target, "/")
	target = strings.TrimSuffix(target, ".md")
	target = strings.TrimSuffix(target, ".markdown")
	return target
}

func resolves(target, fromSlug string, known map[string]bool) bool {
	// Site-absolute ("/posts/foo") and root-relative forms.
	candidates := []string{
		strings.TrimPrefix(target, "/"),
	}

	// Relative to the linking post's directory.
	if dir := path.Dir(fromSlug); dir != "." {
		candidates = append(candidates, path.Clean(path.Join(dir, target)))
	} else {
		candidates = append(candidates, path.Clean(target))
	}

	for _, c := range candidates {
		if known[c] {
			return true
		}
	}
	return false
}
