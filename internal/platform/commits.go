package platform

import (
	"strings"
)

// CommitType constants for semantic commits.
const (
	CommitTypeFeat     = "feat"
	CommitTypeFix      = "fix"
	CommitTypeDocs     = "docs"
	CommitTypeStyle    = "style"
	CommitTypeRefactor = "refactor"
	CommitTypePerf     = "perf"
	CommitTypeTest     = "test"
	CommitTypeChore    = "chore"
)

const footer = "Powered-by: Mulch"

// FormatChangeReason builds a Conventional Commit message:
//
//	<type>(<scope>): <subject>
//
//	<body>
//
//	Powered-by: Mulch
func FormatChangeReason(ctype, scope, subject, body string) string {
	var sb strings.Builder

	if ctype == "" {
		ctype = CommitTypeChore
	}
	sb.WriteString(ctype)

	if scope != "" {
		sb.WriteString("(")
		sb.WriteString(scope)
		sb.WriteString(")")
	}

	sb.WriteString(": ")
	sb.WriteString(subject)

	if body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(body))
	}

	sb.WriteString("\n\n")
	sb.WriteString(footer)

	return sb.String()
}

// AppendFooter appends the Mulch footer to an arbitrary message if missing.
// Used for free-form -m "msg" commits.
func AppendFooter(msg string) string {
	if strings.Contains(msg, footer) {
		return msg
	}
	return strings.TrimSpace(msg) + "\n\n" + footer
}
