package broadcast

import (
	"strings"
	"testing"
)

func TestSplitMessageShortPassesThrough(t *testing.T) {
	t.Parallel()
	got := SplitMessage("привет", 100)
	if len(got) != 1 || got[0] != "привет" {
		t.Fatalf("got %q, want single unchanged part", got)
	}
}

func TestSplitMessageBreaksOnLines(t *testing.T) {
	t.Parallel()
	text := "aaa\nbbb\nccc\nddd"
	got := SplitMessage(text, 7)
	want := []string{"aaa\nbbb", "ccc\nddd"}
	if len(got) != len(want) {
		t.Fatalf("got %d parts %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("part %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitMessageHardSplitsLongLine(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("х", 25)
	got := SplitMessage(text, 10)
	if len(got) != 3 {
		t.Fatalf("got %d parts, want 3", len(got))
	}
	for i, p := range got {
		if n := len([]rune(p)); n > 10 {
			t.Fatalf("part %d has %d runes, limit 10", i, n)
		}
	}
	if strings.Join(got, "") != text {
		t.Fatalf("content lost across parts")
	}
}

func TestSplitMessagePreservesOrder(t *testing.T) {
	t.Parallel()
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, strings.Repeat("x", 80))
	}
	text := strings.Join(lines, "\n")
	parts := SplitMessage(text, 500)
	if len(parts) < 2 {
		t.Fatalf("expected multiple parts, got %d", len(parts))
	}
	if strings.Join(parts, "\n") != text {
		t.Fatalf("reassembled text differs from input")
	}
	for i, p := range parts {
		if n := len([]rune(p)); n > 500 {
			t.Fatalf("part %d has %d runes, limit 500", i, n)
		}
	}
}
