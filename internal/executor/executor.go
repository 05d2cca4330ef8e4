// Package executor performs confirmed admin actions: it persists drafts
// through the content API, relays the backend's verdict to the requesting
// admin, and on success hands the finished post to the broadcast pipeline.
package executor

import (
	"context"
	"fmt"

	"estatebot/internal/backend"
	"estatebot/internal/broadcast"
	"estatebot/internal/config"
	"estatebot/internal/confirm"
	"estatebot/internal/format"
	"estatebot/internal/gateway"
	"estatebot/internal/session"
	"estatebot/pkg/logx"
)

// ChannelSource yields the current broadcast target sets. The config
// manager implements it; hot reloads are picked up per action.
type ChannelSource interface {
	Channels() config.Channels
}

type Executor struct {
	backend  *backend.Client
	pipeline *broadcast.Pipeline
	sender   gateway.Sender
	channels ChannelSource
	log      logx.Logger
}

func New(bc *backend.Client, pipe *broadcast.Pipeline, sender gateway.Sender, channels ChannelSource, log logx.Logger) *Executor {
	return &Executor{
		backend:  bc,
		pipeline: pipe,
		sender:   sender,
		channels: channels,
		log:      log,
	}
}

// Execute dispatches one confirmed action. Backend failures stop before
// any broadcast; broadcast failures never reach the admin as errors.
func (e *Executor) Execute(ctx context.Context, chatID int64, p confirm.Pending) {
	switch p.Action {
	case confirm.ActionCreateProperty:
		draft, ok := p.Payload.(*session.PropertyDraft)
		if !ok {
			e.badPayload(ctx, chatID, p)
			return
		}
		e.createProperty(ctx, chatID, draft)
	case confirm.ActionCreateNews:
		draft, ok := p.Payload.(*session.NewsDraft)
		if !ok {
			e.badPayload(ctx, chatID, p)
			return
		}
		e.createNews(ctx, chatID, draft)
	case confirm.ActionDeleteAll:
		e.relay(ctx, chatID, "удаление всех объектов")(e.backend.DeleteAll(ctx))
	case confirm.ActionDeleteDrafts:
		e.relay(ctx, chatID, "удаление черновиков")(e.backend.DeleteDrafts(ctx))
	case confirm.ActionDeleteOld:
		e.relay(ctx, chatID, "удаление старых объектов")(e.backend.DeleteOld(ctx))
	case confirm.ActionDeleteByID:
		id, ok := p.Payload.(string)
		if !ok || id == "" {
			e.badPayload(ctx, chatID, p)
			return
		}
		e.relay(ctx, chatID, "удаление объекта "+id)(e.backend.DeleteByID(ctx, id))
	case confirm.ActionDeleteByTitle:
		title, ok := p.Payload.(string)
		if !ok || title == "" {
			e.badPayload(ctx, chatID, p)
			return
		}
		e.relay(ctx, chatID, "удаление по заголовку")(e.backend.DeleteByTitle(ctx, title))
	default:
		e.log.Error("unknown confirmed action", logx.String("action", string(p.Action)))
		e.notify(ctx, chatID, "❌ Неизвестное действие.")
	}
}

func (e *Executor) createProperty(ctx context.Context, chatID int64, draft *session.PropertyDraft) {
	res, err := e.backend.CreateProperty(ctx, propertyRecord(draft))
	if err != nil {
		e.log.Error("property create failed", logx.Int64("chat_id", chatID), logx.Err(err))
		e.notify(ctx, chatID, "❌ Ошибка при добавлении объекта. Попробуйте позже.")
		return
	}
	if !res.Success {
		e.notify(ctx, chatID, "❌ Объект не добавлен: "+res.Message)
		return
	}

	msg := "✅ Объект успешно добавлен!"
	if res.EntryID != "" {
		msg += "\nID: " + res.EntryID
	}
	e.notify(ctx, chatID, msg)

	images := make([]broadcast.Image, 0, len(draft.Images()))
	for _, ref := range draft.Images() {
		images = append(images, broadcast.Image{URL: ref.URL, FileID: ref.FileID})
	}
	ch := e.channels.Channels()
	targets := union(ch.Property, ch.All)
	e.log.Info("broadcasting property",
		logx.String("title", draft.Title),
		logx.Int("images", len(images)),
		logx.Int("channels", len(targets)))
	e.pipeline.Images(ctx, targets, images, format.Property(draft))
}

func (e *Executor) createNews(ctx context.Context, chatID int64, draft *session.NewsDraft) {
	res, err := e.backend.CreateNews(ctx, newsRecord(draft))
	if err != nil {
		e.log.Error("news create failed", logx.Int64("chat_id", chatID), logx.Err(err))
		e.notify(ctx, chatID, "❌ Ошибка при добавлении новости. Попробуйте позже.")
		return
	}
	if !res.Success {
		e.notify(ctx, chatID, "❌ Новость не добавлена: "+res.Message)
		return
	}
	e.notify(ctx, chatID, "✅ Новость успешно добавлена!")

	ch := e.channels.Channels()
	targets := union(ch.News, ch.All)
	text := format.News(draft)
	e.log.Info("broadcasting news",
		logx.String("title", draft.Title),
		logx.Bool("logo", !draft.Logo.Empty()),
		logx.Int("channels", len(targets)))
	if draft.Logo.Empty() {
		e.pipeline.Text(ctx, targets, text)
		return
	}
	e.pipeline.Images(ctx, targets, []broadcast.Image{{URL: draft.Logo.URL, FileID: draft.Logo.FileID}}, text)
}

// relay forwards the backend's verdict on a delete operation verbatim.
func (e *Executor) relay(ctx context.Context, chatID int64, what string) func(*backend.Result, error) {
	return func(res *backend.Result, err error) {
		if err != nil {
			e.log.Error("delete failed", logx.String("op", what), logx.Err(err))
			e.notify(ctx, chatID, fmt.Sprintf("❌ Не удалось выполнить %s. Попробуйте позже.", what))
			return
		}
		prefix := "✅ "
		if !res.Success {
			prefix = "❌ "
		}
		msg := res.Message
		if msg == "" {
			msg = "Готово: " + what
		}
		e.notify(ctx, chatID, prefix+msg)
	}
}

func (e *Executor) badPayload(ctx context.Context, chatID int64, p confirm.Pending) {
	e.log.Error("confirmed action carried wrong payload",
		logx.String("action", string(p.Action)),
		logx.Any("payload", p.Payload))
	e.notify(ctx, chatID, "❌ Внутренняя ошибка. Начните заново.")
}

func (e *Executor) notify(ctx context.Context, chatID int64, text string) {
	if err := e.sender.SendText(ctx, gateway.ChatID(chatID), text, nil); err != nil {
		e.log.Error("admin notice failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

func propertyRecord(d *session.PropertyDraft) backend.PropertyRecord {
	refs := d.Images()
	urls := make([]string, 0, len(refs))
	fileIDs := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
		if r.FileID != "" {
			fileIDs = append(fileIDs, r.FileID)
		}
	}
	return backend.PropertyRecord{
		Title:         d.Title,
		Type:          string(d.DealType),
		Price:         d.Price,
		Address:       d.Address,
		District:      d.District,
		Floor:         d.Floor,
		Rooms:         d.Rooms,
		HasLift:       d.HasLift,
		HasBalcony:    d.HasBalcony,
		Bathroom:      d.Bathrooms,
		TypeHome:      string(d.HomeType),
		Nearby:        d.Nearby,
		DateUse:       d.Availability,
		ApartmentArea: d.AreaSqm,
		Description:   d.Description,
		Images:        urls,
		AssetsArray:   fileIDs,
	}
}

func newsRecord(d *session.NewsDraft) backend.NewsRecord {
	rec := backend.NewsRecord{
		Title:    d.Title,
		BlogText: d.Body,
	}
	if d.Logo.URL != "" {
		rec.LogoBlog = []string{d.Logo.URL}
	}
	rec.LogoFileID = d.Logo.FileID
	return rec
}

// union concatenates the channel sets, dropping duplicates while keeping
// first-seen order.
func union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, ch := range set {
			if _, ok := seen[ch]; ok {
				continue
			}
			seen[ch] = struct{}{}
			out = append(out, ch)
		}
	}
	return out
}
