package platform

import (
	"strings"
	"testing"
)

func TestFormatChangeReason(t *testing.T) {
	t.Run("Full Message", func(t *testing.T) {
		msg := FormatChangeReason(CommitTypeDocs, "posts", "add hello-world", "Initial draft.")

		if !strings.HasPrefix(msg, "docs(posts): add hello-world") {
			t.Errorf("unexpected header: %q", msg)
		}
		if !strings.Contains(msg, "Initial draft.") {
			t.Errorf("body missing: %q", msg)
		}
		if !strings.HasSuffix(msg, "Powered-by: Mulch") {
			t.Errorf("footer missing: %q", msg)
		}
	})

	t.Run("No Scope No Body", func(t *testing.T) {
		msg := FormatChangeReason(CommitTypeFix, "", "repair index", "")
		if !strings.HasPrefix(msg, "fix: repair index") {
			t.Errorf("unexpected header: %q", msg)
		}
	})

	t.Run("Defaults Type to Chore", func(t *testing.T) {
		msg := FormatChangeReason("", "", "housekeeping", "")
		if !strings.HasPrefix(msg, "chore: housekeeping") {
			t.Errorf("unexpected header: %q", msg)
		}
	})
}

func TestAppendFooter(t *testing.T) {
	msg := AppendFooter("free-form message")
	if !strings.HasSuffix(msg, "Powered-by: Mulch") {
		t.Errorf("footer missing: %q", msg)
	}

	// Idempotent.
	if again := AppendFooter(msg); again != msg {
		t.Errorf("footer duplicated: %q", again)
	}
}
