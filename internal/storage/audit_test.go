package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"estatebot/pkg/logx"
)

func TestDisabledStoreDiscards(t *testing.T) {
	t.Parallel()
	st, err := Open("", logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if err := st.Append(context.Background(), Entry{ChatID: 1, Action: "/start"}); err != nil {
		t.Fatal(err)
	}
	got, err := st.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("disabled store returned %d entries", len(got))
	}
}

func TestAppendAndRecent(t *testing.T) {
	t.Parallel()
	st, err := Open(filepath.Join(t.TempDir(), "audit.db"), logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	ctx := context.Background()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{At: at, ChatID: 100, Username: "admin", Action: "/start", Allowed: true},
		{At: at.Add(time.Minute), ChatID: 999, Action: "text", Allowed: false},
	}
	for _, e := range entries {
		if err := st.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := st.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	// Newest first.
	if got[0].ChatID != 999 || got[0].Allowed {
		t.Fatalf("got[0] = %+v", got[0])
	}
	if got[1].Username != "admin" || !got[1].Allowed {
		t.Fatalf("got[1] = %+v", got[1])
	}
	if !got[1].At.Equal(at) {
		t.Fatalf("at = %s, want %s", got[1].At, at)
	}
}

func TestRecentLimit(t *testing.T) {
	t.Parallel()
	st, err := Open(filepath.Join(t.TempDir(), "audit.db"), logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := st.Append(ctx, Entry{ChatID: int64(i), Action: "text", Allowed: true}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := st.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
}
