package intake

import (
	"context"
	"fmt"
	"strings"

	"estatebot/internal/confirm"
	"estatebot/internal/session"
)

var newsSteps = map[session.Step]stepHandler{
	session.StepNewsTitle: (*Flow).stepNewsTitle,
	session.StepNewsLogo:  (*Flow).stepNewsLogoText,
	session.StepNewsBody:  (*Flow).stepNewsBody,
}

// StartNews opens a fresh news intake, replacing any in-progress session
// for the chat.
func (f *Flow) StartNews(ctx context.Context, chatID int64) {
	f.store.Set(chatID, &session.Session{
		Kind: session.KindNews,
		Step: session.StepNewsTitle,
		News: &session.NewsDraft{},
	})
	f.say(ctx, chatID, "📝 Введите заголовок новости:")
}

func (f *Flow) stepNewsTitle(ctx context.Context, chatID int64, sess *session.Session, text string) {
	title := strings.TrimSpace(text)
	// Menu buttons and slash commands leak through when the admin taps the
	// wrong thing mid-intake; never accept them as a title.
	if title == "" || strings.HasPrefix(title, "/") ||
		strings.Contains(title, "Добавить") || strings.Contains(title, "Удалить") {
		f.say(ctx, chatID, "📝 Пожалуйста, введите заголовок новости:")
		return
	}
	sess.News.Title = title
	sess.Step = session.StepNewsLogo
	f.say(ctx, chatID, "🖼️ Теперь отправьте логотип/обложку для новости (одно фото) :")
}

func (f *Flow) stepNewsLogoText(ctx context.Context, chatID int64, _ *session.Session, _ string) {
	f.say(ctx, chatID, "Пожалуйста, отправьте изображение или введите /skip чтобы пропустить")
}

func (f *Flow) newsLogoReceived(ctx context.Context, chatID int64, sess *session.Session, img session.ImageRef) {
	sess.News.Logo = img
	sess.Step = session.StepNewsBody
	f.say(ctx, chatID, "✅ Логотип новости получен! Теперь введите текст новости:")
}

// SkipLogo advances past the optional logo step without a picture.
func (f *Flow) SkipLogo(ctx context.Context, chatID int64) {
	sess, ok := f.store.Get(chatID)
	if !ok || sess.Kind != session.KindNews || sess.Step != session.StepNewsLogo {
		f.say(ctx, chatID, "Сейчас нечего пропускать.")
		return
	}
	sess.Step = session.StepNewsBody
	f.say(ctx, chatID, "📝 Введите текст новости:")
}

func (f *Flow) stepNewsBody(ctx context.Context, chatID int64, sess *session.Session, text string) {
	body := strings.TrimSpace(text)
	if body == "" {
		f.say(ctx, chatID, "📝 Введите текст новости:")
		return
	}
	sess.News.Body = body

	draft := sess.News
	f.store.Delete(chatID)

	logoCount := 0
	if !draft.Logo.Empty() {
		logoCount = 1
	}
	f.gate.Ask(ctx, chatID, confirm.ActionCreateNews, draft, fmt.Sprintf(
		"📰 ПРЕДПРОСМОТР НОВОСТИ:\n\n📝 Заголовок: %s\n📖 Текст: %s\n🖼️ Изображений: %d/1\n\n✅ Все правильно?",
		draft.Title, preview(draft.Body, 100), logoCount))
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
