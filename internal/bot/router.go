// Package bot is the conversation surface: one goroutine consumes the
// inbound update stream and routes every event through the access check,
// the confirmation gate, the intake flows and the command handlers, in
// that order. Sequential consumption is what lets session state live in a
// plain map.
package bot

import (
	"context"
	"fmt"
	"strings"
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

const accessDeniedMsg = "❌ У вас нет доступа к этому боту. Обратитесь к администратору."

const (
	btnAddProperty   = "➕ Добавить объект"
	btnAddNews       = "📰 Добавить новость"
	btnList          = "📋 Список объектов"
	btnDeleteMenu    = "🗑️ Управление удалением"
	btnInfo          = "👑 Информация"
	btnDeleteAll     = "🗑️ Удалить все"
	btnDeleteDrafts  = "📝 Удалить черновики"
	btnDeleteOld     = "🕐 Удалить старые"
	btnDeleteByTitle = "🔍 Удалить по заголовку"
	btnBack          = "↩️ Назад в меню"
)

type Router struct {
	cfg      *config.Manager
	sender   gateway.Sender
	store    *session.Store
	flow     *intake.Flow
	gate     *confirm.Gate
	backend  *backend.Client
	pipeline *broadcast.Pipeline
	audit    storage.Store
	log      logx.Logger
	started  time.Time
}

func NewRouter(
	cfg *config.Manager,
	sender gateway.Sender,
	store *session.Store,
	flow *intake.Flow,
	gate *confirm.Gate,
	bc *backend.Client,
	pipe *broadcast.Pipeline,
	audit storage.Store,
	log logx.Logger,
) *Router {
	return &Router{
		cfg:      cfg,
		sender:   sender,
		store:    store,
		flow:     flow,
		gate:     gate,
		backend:  bc,
		pipeline: pipe,
		audit:    audit,
		log:      log,
		started:  time.Now(),
	}
}

// Run consumes updates until the stream closes or the context ends.
func (r *Router) Run(ctx context.Context, updates <-chan gateway.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			r.handle(ctx, u)
		}
	}
}

func (r *Router) handle(ctx context.Context, u gateway.Update) {
	// /ping answers everyone; it is the liveness probe admins hand out.
	if u.Kind == gateway.UpdateCommand && u.Command == "/ping" {
		r.say(ctx, u.ChatID, "🏓 Pong!")
		return
	}

	allowed := r.isAdmin(u.ChatID)
	r.record(ctx, u, allowed)
	if !allowed {
		r.log.Warn("access denied",
			logx.Int64("chat_id", u.ChatID),
			logx.String("username", u.Username))
		r.say(ctx, u.ChatID, accessDeniedMsg)
		return
	}

	switch u.Kind {
	case gateway.UpdateCommand:
		r.handleCommand(ctx, u)
	case gateway.UpdatePhoto:
		r.handlePhoto(ctx, u)
	default:
		r.handleText(ctx, u)
	}
}

func (r *Router) handleText(ctx context.Context, u gateway.Update) {
	// A pending confirmation eats the next text reply, whatever it says.
	if r.gate.Resolve(ctx, u.ChatID, u.Text) {
		return
	}

	switch u.Text {
	case btnAddProperty:
		r.flow.StartProperty(ctx, u.ChatID)
		return
	case btnAddNews:
		r.flow.StartNews(ctx, u.ChatID)
		return
	case btnList:
		r.listEntries(ctx, u.ChatID)
		return
	case btnDeleteMenu:
		r.ask(ctx, u.ChatID, "🗑️ Выберите режим удаления:", deleteMenuRows())
		return
	case btnInfo:
		r.sendInfo(ctx, u)
		return
	case btnBack:
		r.store.Delete(u.ChatID)
		r.mainMenu(ctx, u.ChatID, "Главное меню:")
		return
	case btnDeleteAll:
		r.gate.Ask(ctx, u.ChatID, confirm.ActionDeleteAll, nil,
			"⚠️ Вы уверены, что хотите удалить ВСЕ объекты?\n\nЭто действие необратимо.")
		return
	case btnDeleteDrafts:
		r.gate.Ask(ctx, u.ChatID, confirm.ActionDeleteDrafts, nil,
			"❓ Удалить все черновики объектов?")
		return
	case btnDeleteOld:
		r.gate.Ask(ctx, u.ChatID, confirm.ActionDeleteOld, nil,
			"❓ Удалить объекты старше 30 дней?")
		return
	case btnDeleteByTitle:
		r.store.Set(u.ChatID, &session.Session{Kind: session.KindDelete, Step: session.StepDeleteTitle})
		r.say(ctx, u.ChatID, "🔍 Введите заголовок объекта для удаления:")
		return
	}

	sess, ok := r.store.Get(u.ChatID)
	if !ok {
		r.mainMenu(ctx, u.ChatID, "Выберите действие:")
		return
	}
	if sess.Kind == session.KindDelete {
		r.deleteTitleEntered(ctx, u.ChatID, u.Text)
		return
	}
	r.flow.HandleText(ctx, u.ChatID, sess, u.Text)
}

func (r *Router) handlePhoto(ctx context.Context, u gateway.Update) {
	sess, ok := r.store.Get(u.ChatID)
	if !ok || u.Photo == nil {
		r.say(ctx, u.ChatID, "❌ Сначала начните добавление объекта или новости.")
		return
	}
	r.flow.HandlePhoto(ctx, u.ChatID, sess, u.Photo)
}

func (r *Router) handleCommand(ctx context.Context, u gateway.Update) {
	if id, ok := strings.CutPrefix(u.Command, "/delete_"); ok && id != "" {
		r.gate.Ask(ctx, u.ChatID, confirm.ActionDeleteByID, id,
			fmt.Sprintf("❓ Удалить объект %s?", id))
		return
	}

	switch u.Command {
	case "/start":
		r.store.Delete(u.ChatID)
		r.mainMenu(ctx, u.ChatID, "👋 Добро пожаловать в панель управления!\n\nВыберите действие:")
	case "/myid":
		r.sendInfo(ctx, u)
	case "/done":
		r.flow.Done(ctx, u.ChatID)
	case "/skip":
		r.flow.SkipLogo(ctx, u.ChatID)
	case "/bot_status":
		r.sendStatus(ctx, u.ChatID)
	case "/check_groups":
		r.checkGroups(ctx, u.ChatID)
	case "/test_groups":
		r.testGroups(ctx, u.ChatID)
	default:
		r.say(ctx, u.ChatID, "Неизвестная команда. Используйте меню или /start.")
	}
}

// deleteTitleEntered closes the title-capture session and asks for the
// final confirmation.
func (r *Router) deleteTitleEntered(ctx context.Context, chatID int64, text string) {
	title := strings.TrimSpace(text)
	if title == "" {
		r.say(ctx, chatID, "🔍 Введите заголовок объекта для удаления:")
		return
	}
	r.store.Delete(chatID)
	r.gate.Ask(ctx, chatID, confirm.ActionDeleteByTitle, title,
		fmt.Sprintf("❓ Удалить все объекты с заголовком «%s»?", title))
}

func (r *Router) listEntries(ctx context.Context, chatID int64) {
	res, err := r.backend.List(ctx)
	if err != nil {
		r.log.Error("list failed", logx.Err(err))
		r.say(ctx, chatID, "❌ Не удалось получить список объектов. Попробуйте позже.")
		return
	}
	if !res.Success {
		r.say(ctx, chatID, "❌ "+res.Message)
		return
	}
	if len(res.Entries) == 0 {
		r.say(ctx, chatID, "📋 Объектов пока нет.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Объекты (%d):\n\n", len(res.Entries))
	for i, e := range res.Entries {
		fmt.Fprintf(&b, "%d. %s\n💰 %d €\n🗑️ /delete_%s\n\n", i+1, e.Title, e.Price, e.ID)
	}
	for _, part := range broadcast.SplitMessage(b.String(), broadcast.MaxMessageLen) {
		r.say(ctx, chatID, part)
	}
}

func (r *Router) sendInfo(ctx context.Context, u gateway.Update) {
	name := u.Username
	if name == "" {
		name = "—"
	}
	r.say(ctx, u.ChatID, fmt.Sprintf("👑 Ваши данные:\n\nID: %d\nUsername: @%s", u.ChatID, name))
}

func (r *Router) sendStatus(ctx context.Context, chatID int64) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	apiState := "✅ доступен"
	if err := r.backend.Ping(pingCtx); err != nil {
		apiState = "❌ недоступен"
	}
	cancel()

	ch := r.cfg.Channels()
	r.say(ctx, chatID, fmt.Sprintf(
		"🤖 Статус бота\n\n⏱️ Аптайм: %s\n📡 API: %s\n💬 Активных сессий: %d\n⏳ Ожидают подтверждения: %d\n📢 Каналов: %d",
		time.Since(r.started).Round(time.Second),
		apiState,
		r.store.Len(),
		r.gate.PendingCount(),
		len(ch.Property)+len(ch.News)+len(ch.All)))
}

func (r *Router) checkGroups(ctx context.Context, chatID int64) {
	ch := r.cfg.Channels()
	var b strings.Builder
	b.WriteString("📢 Настроенные каналы:\n")
	writeGroup(&b, "Объекты", ch.Property)
	writeGroup(&b, "Новости", ch.News)
	writeGroup(&b, "Общие", ch.All)
	r.say(ctx, chatID, b.String())
}

func writeGroup(b *strings.Builder, label string, set []string) {
	fmt.Fprintf(b, "\n%s (%d):\n", label, len(set))
	if len(set) == 0 {
		b.WriteString("— нет\n")
		return
	}
	for _, ch := range set {
		fmt.Fprintf(b, "• %s\n", ch)
	}
}

func (r *Router) testGroups(ctx context.Context, chatID int64) {
	ch := r.cfg.Channels()
	targets := unionChannels(ch.Property, ch.News, ch.All)
	if len(targets) == 0 {
		r.say(ctx, chatID, "❌ Каналы не настроены.")
		return
	}
	r.say(ctx, chatID, fmt.Sprintf("📤 Отправляю тестовое сообщение в %d канал(ов)...", len(targets)))
	r.pipeline.Text(ctx, targets, "🔧 Тестовое сообщение. Если вы его видите, канал подключен корректно.")
	r.say(ctx, chatID, "✅ Тест завершен. Проверьте каналы и логи.")
}

func (r *Router) mainMenu(ctx context.Context, chatID int64, text string) {
	r.ask(ctx, chatID, text, [][]string{
		{btnAddProperty, btnAddNews},
		{btnList, btnDeleteMenu},
		{btnInfo},
	})
}

func deleteMenuRows() [][]string {
	return [][]string{
		{btnDeleteAll, btnDeleteDrafts},
		{btnDeleteOld, btnDeleteByTitle},
		{btnBack},
	}
}

func (r *Router) isAdmin(chatID int64) bool {
	for _, id := range r.cfg.Admins() {
		if id == chatID {
			return true
		}
	}
	return false
}

func (r *Router) record(ctx context.Context, u gateway.Update, allowed bool) {
	action := u.Command
	if action == "" {
		action = string(u.Kind)
	}
	if err := r.audit.Append(ctx, storage.Entry{
		ChatID:   u.ChatID,
		Username: u.Username,
		Action:   action,
		Allowed:  allowed,
	}); err != nil {
		r.log.Error("audit append failed", logx.Err(err))
	}
}

func (r *Router) say(ctx context.Context, chatID int64, text string) {
	if err := r.sender.SendText(ctx, gateway.ChatID(chatID), text, nil); err != nil {
		r.log.Error("send failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

func (r *Router) ask(ctx context.Context, chatID int64, text string, rows [][]string) {
	opt := &gateway.SendOptions{Keyboard: &gateway.Keyboard{Rows: rows}}
	if err := r.sender.SendText(ctx, gateway.ChatID(chatID), text, opt); err != nil {
		r.log.Error("send failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

func unionChannels(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, c := range set {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
