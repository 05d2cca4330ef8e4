// Package intake turns a conversation into a validated draft. Each content
// kind has a fixed, ordered step sequence; every step owns its validation
// and its prompt. Dispatch is table-driven: one handler per step, keyed by
// the step enum, so an unknown step is detectable and self-heals by
// resetting the sequence.
package intake

import (
	"context"

	"estatebot/internal/confirm"
	"estatebot/internal/gateway"
	"estatebot/internal/session"
	"estatebot/pkg/logx"
)

type Flow struct {
	sender gateway.Sender
	store  *session.Store
	gate   *confirm.Gate
	log    logx.Logger
}

func New(sender gateway.Sender, store *session.Store, gate *confirm.Gate, log logx.Logger) *Flow {
	return &Flow{sender: sender, store: store, gate: gate, log: log}
}

// stepHandler processes one text event for one step.
type stepHandler func(f *Flow, ctx context.Context, chatID int64, sess *session.Session, text string)

// HandleText advances the chat's session with a text event. Invalid input
// re-prompts without advancing; a step outside the known sequence resets
// the session to its first step.
func (f *Flow) HandleText(ctx context.Context, chatID int64, sess *session.Session, text string) {
	var table map[session.Step]stepHandler
	switch sess.Kind {
	case session.KindNews:
		table = newsSteps
	default:
		table = propertySteps
	}

	h, ok := table[sess.Step]
	if !ok {
		f.log.Warn("unknown intake step; resetting sequence",
			logx.Int64("chat_id", chatID),
			logx.String("step", string(sess.Step)),
			logx.String("kind", string(sess.Kind)))
		f.reset(ctx, chatID, sess.Kind)
		return
	}
	h(f, ctx, chatID, sess, text)
}

// HandlePhoto routes a photo event by the session's current step.
func (f *Flow) HandlePhoto(ctx context.Context, chatID int64, sess *session.Session, photo *gateway.Photo) {
	img := session.ImageRef{URL: photo.URL, FileID: photo.FileID}

	switch {
	case sess.Kind == session.KindNews && sess.Step == session.StepNewsLogo:
		f.newsLogoReceived(ctx, chatID, sess, img)
	case sess.Kind == session.KindProperty && sess.Step == session.StepMainImage:
		f.mainImageReceived(ctx, chatID, sess, img)
	case sess.Kind == session.KindProperty && sess.Step == session.StepMoreImages:
		f.additionalImageReceived(ctx, chatID, sess, img)
	default:
		f.say(ctx, chatID, "❌ Сначала завершите текущий шаг добавления объекта.")
	}
}

func (f *Flow) reset(ctx context.Context, chatID int64, kind session.Kind) {
	switch kind {
	case session.KindNews:
		f.StartNews(ctx, chatID)
	default:
		f.StartProperty(ctx, chatID)
	}
}

func (f *Flow) say(ctx context.Context, chatID int64, text string) {
	if err := f.sender.SendText(ctx, gateway.ChatID(chatID), text, nil); err != nil {
		f.log.Error("prompt failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

func (f *Flow) ask(ctx context.Context, chatID int64, text string, rows [][]string) {
	opt := &gateway.SendOptions{Keyboard: &gateway.Keyboard{Rows: rows, OneTime: true}}
	if err := f.sender.SendText(ctx, gateway.ChatID(chatID), text, opt); err != nil {
		f.log.Error("prompt failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}
