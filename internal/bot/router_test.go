package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"estatebot/internal/backend"
	"estatebot/internal/broadcast"
	"estatebot/internal/config"
	"estatebot/internal/confirm"
	"estatebot/internal/gateway"
	"estatebot/internal/intake"
	"estatebot/internal/session"
	"estatebot/internal/storage"
	"estatebot/pkg/logx"
)

type sentText struct {
	to   string
	text string
}

type fakeSender struct {
	texts []sentText
}

func (s *fakeSender) SendText(_ context.Context, to, text string, _ *gateway.SendOptions) error {
	s.texts = append(s.texts, sentText{to, text})
	return nil
}

func (s *fakeSender) SendPhoto(context.Context, string, gateway.Media, string) error { return nil }
func (s *fakeSender) SendAlbum(context.Context, string, []gateway.Media, string) error {
	return nil
}
func (s *fakeSender) SendDocument(context.Context, string, []byte, string, string) error {
	return nil
}
func (s *fakeSender) FileURL(context.Context, string) (string, error) { return "", nil }

func (s *fakeSender) last() string {
	if len(s.texts) == 0 {
		return ""
	}
	return s.texts[len(s.texts)-1].text
}

type recordingExec struct {
	calls []confirm.Pending
}

func (e *recordingExec) Execute(_ context.Context, _ int64, p confirm.Pending) {
	e.calls = append(e.calls, p)
}

const adminID int64 = 100

func newTestRouter(t *testing.T, handler http.HandlerFunc) (*Router, *fakeSender, *confirm.Gate, *recordingExec, *session.Store) {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(backend.Result{Success: true})
		}
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	body := `
telegram:
  token: "123:abc"
backend:
  url: "` + srv.URL + `"
admins: [100]
channels:
  property: ["@props"]
  news: ["@news"]
  all: ["@main"]
`
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	manager := config.NewManager(cfgPath, logx.Nop())
	if _, err := manager.Load(); err != nil {
		t.Fatal(err)
	}

	sender := &fakeSender{}
	exec := &recordingExec{}
	store := session.NewStore()
	gate := confirm.NewGate(sender, exec, logx.Nop())
	flow := intake.New(sender, store, gate, logx.Nop())
	bc := backend.New(backend.Config{URL: srv.URL, Token: "t", Timeout: 5 * time.Second}, logx.Nop())
	pipe := broadcast.New(broadcast.Config{
		RatePerSec: 1000,
		PartDelay:  time.Millisecond,
		ChunkDelay: time.Millisecond,
	}, sender, nil, logx.Nop())
	audit, err := storage.Open("", logx.Nop())
	if err != nil {
		t.Fatal(err)
	}

	r := NewRouter(manager, sender, store, flow, gate, bc, pipe, audit, logx.Nop())
	return r, sender, gate, exec, store
}

func textFrom(chatID int64, text string) gateway.Update {
	return gateway.Update{Kind: gateway.UpdateText, ChatID: chatID, Username: "u", Text: text}
}

func commandFrom(chatID int64, cmd string) gateway.Update {
	return gateway.Update{Kind: gateway.UpdateCommand, ChatID: chatID, Username: "u", Command: cmd}
}

func TestNonAdminIsDenied(t *testing.T) {
	t.Parallel()
	r, sender, _, _, _ := newTestRouter(t, nil)

	r.handle(context.Background(), textFrom(999, "привет"))

	if sender.last() != accessDeniedMsg {
		t.Fatalf("got %q, want access denied", sender.last())
	}
}

func TestPingAnswersEveryone(t *testing.T) {
	t.Parallel()
	r, sender, _, _, _ := newTestRouter(t, nil)

	r.handle(context.Background(), commandFrom(999, "/ping"))

	if sender.last() != "🏓 Pong!" {
		t.Fatalf("got %q", sender.last())
	}
}

func TestMenuStartsPropertyIntake(t *testing.T) {
	t.Parallel()
	r, _, _, _, store := newTestRouter(t, nil)

	r.handle(context.Background(), textFrom(adminID, btnAddProperty))

	sess, ok := store.Get(adminID)
	if !ok || sess.Kind != session.KindProperty || sess.Step != session.StepType {
		t.Fatalf("session = %+v", sess)
	}
}

func TestPendingConfirmationEatsReply(t *testing.T) {
	t.Parallel()
	r, _, gate, exec, store := newTestRouter(t, nil)
	ctx := context.Background()

	r.handle(ctx, textFrom(adminID, btnDeleteAll))
	if gate.PendingCount() != 1 {
		t.Fatal("delete-all must go through the gate")
	}

	// The reply is consumed by the gate, not the menu or a flow.
	r.handle(ctx, textFrom(adminID, confirm.BtnYes))
	if len(exec.calls) != 1 || exec.calls[0].Action != confirm.ActionDeleteAll {
		t.Fatalf("executor calls = %+v", exec.calls)
	}
	if store.Len() != 0 {
		t.Fatal("no session should exist after a confirmation")
	}
}

func TestDeleteByIDCommand(t *testing.T) {
	t.Parallel()
	r, _, gate, exec, _ := newTestRouter(t, nil)
	ctx := context.Background()

	r.handle(ctx, commandFrom(adminID, "/delete_abc123"))
	if gate.PendingCount() != 1 {
		t.Fatal("delete by id must ask first")
	}

	r.handle(ctx, textFrom(adminID, confirm.BtnYes))
	if len(exec.calls) != 1 || exec.calls[0].Action != confirm.ActionDeleteByID {
		t.Fatalf("executor calls = %+v", exec.calls)
	}
	if exec.calls[0].Payload != "abc123" {
		t.Fatalf("payload = %v", exec.calls[0].Payload)
	}
}

func TestDeleteByTitleCapture(t *testing.T) {
	t.Parallel()
	r, _, gate, exec, store := newTestRouter(t, nil)
	ctx := context.Background()

	r.handle(ctx, textFrom(adminID, btnDeleteByTitle))
	sess, ok := store.Get(adminID)
	if !ok || sess.Kind != session.KindDelete {
		t.Fatalf("session = %+v, want title capture", sess)
	}

	r.handle(ctx, textFrom(adminID, "Квартира у моря"))
	if _, ok := store.Get(adminID); ok {
		t.Fatal("capture session must be dropped")
	}
	if gate.PendingCount() != 1 {
		t.Fatal("confirmation must be pending")
	}

	r.handle(ctx, textFrom(adminID, "да"))
	if len(exec.calls) != 1 || exec.calls[0].Payload != "Квартира у моря" {
		t.Fatalf("executor calls = %+v", exec.calls)
	}
}

func TestStartClearsSession(t *testing.T) {
	t.Parallel()
	r, sender, _, _, store := newTestRouter(t, nil)
	ctx := context.Background()

	r.handle(ctx, textFrom(adminID, btnAddProperty))
	r.handle(ctx, commandFrom(adminID, "/start"))

	if store.Len() != 0 {
		t.Fatal("/start must drop the in-progress session")
	}
	if !strings.Contains(sender.last(), "Выберите действие") {
		t.Fatalf("menu not shown: %q", sender.last())
	}
}

func TestListRendersDeleteCommands(t *testing.T) {
	t.Parallel()
	r, sender, _, _, _ := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(backend.Result{Success: true, Entries: []backend.Entry{
			{ID: "e-1", Title: "Первый", Price: 900},
			{ID: "e-2", Title: "Второй", Price: 1100},
		}})
	})

	r.handle(context.Background(), textFrom(adminID, btnList))

	got := sender.last()
	for _, want := range []string{"Первый", "Второй", "/delete_e-1", "/delete_e-2", "900", "1100"} {
		if !strings.Contains(got, want) {
			t.Errorf("list missing %q in %q", want, got)
		}
	}
}

func TestUnknownTextShowsMenu(t *testing.T) {
	t.Parallel()
	r, sender, _, _, _ := newTestRouter(t, nil)

	r.handle(context.Background(), textFrom(adminID, "просто текст"))

	if !strings.Contains(sender.last(), "Выберите действие") {
		t.Fatalf("got %q, want main menu", sender.last())
	}
}

func TestIntakeTextRoutedToFlow(t *testing.T) {
	t.Parallel()
	r, _, _, _, store := newTestRouter(t, nil)
	ctx := context.Background()

	r.handle(ctx, textFrom(adminID, btnAddProperty))
	r.handle(ctx, textFrom(adminID, "аренда"))

	sess, _ := store.Get(adminID)
	if sess.Step != session.StepTitle {
		t.Fatalf("step = %s, want title", sess.Step)
	}
}

func TestPhotoWithoutSession(t *testing.T) {
	t.Parallel()
	r, sender, _, _, _ := newTestRouter(t, nil)

	r.handle(context.Background(), gateway.Update{
		Kind:   gateway.UpdatePhoto,
		ChatID: adminID,
		Photo:  &gateway.Photo{FileID: "f"},
	})

	if !strings.Contains(sender.last(), "Сначала начните") {
		t.Fatalf("got %q", sender.last())
	}
}

func TestCheckGroupsListsChannels(t *testing.T) {
	t.Parallel()
	r, sender, _, _, _ := newTestRouter(t, nil)

	r.handle(context.Background(), commandFrom(adminID, "/check_groups"))

	got := sender.last()
	for _, want := range []string{"@props", "@news", "@main"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
}

func TestTestGroupsHitsEveryChannelOnce(t *testing.T) {
	t.Parallel()
	r, sender, _, _, _ := newTestRouter(t, nil)

	r.handle(context.Background(), commandFrom(adminID, "/test_groups"))

	hits := map[string]int{}
	for _, m := range sender.texts {
		if strings.HasPrefix(m.to, "@") {
			hits[m.to]++
		}
	}
	for _, ch := range []string{"@props", "@news", "@main"} {
		if hits[ch] != 1 {
			t.Errorf("channel %s hit %d times, want 1", ch, hits[ch])
		}
	}
}
