// Package telegram implements the gateway contract on top of telebot's
// long poller.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"estatebot/internal/gateway"
	"estatebot/pkg/logx"
)

type Config struct {
	Token       string        `yaml:"token"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

type Adapter struct {
	cfg Config
	log logx.Logger

	bot       *tele.Bot
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
	runMu     sync.Mutex
	running   bool

	// droppedUpdates counts updates dropped because the consumer was slower
	// than the poll loop. Logged periodically to avoid per-update spam.
	droppedUpdates uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

// chatRef satisfies telebot's Recipient for raw identifiers, so channel
// targets can stay strings ("-100..." or "@name") all the way from config.
type chatRef string

func (r chatRef) Recipient() string { return string(r) }

func (a *Adapter) Start(ctx context.Context, out chan<- gateway.Update) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runWG.Add(2)
	a.runMu.Unlock()

	// Periodic summary for dropped updates.
	go func() {
		defer a.runWG.Done()
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-rctx.Done():
				if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
					a.log.Warn("incoming updates dropped (channel full)", logx.Any("count", n))
				}
				return
			case <-ticker.C:
				if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
					a.log.Warn("incoming updates dropped (channel full)", logx.Any("count", n))
				}
			}
		}
	}()

	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Sender == nil {
			return nil
		}
		a.push(out, classifyText(m))
		return nil
	})

	a.bot.Handle(tele.OnPhoto, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Sender == nil || m.Photo == nil {
			return nil
		}
		up := gateway.Update{
			Kind:     gateway.UpdatePhoto,
			ChatID:   m.Chat.ID,
			Username: m.Sender.Username,
			Photo:    &gateway.Photo{FileID: m.Photo.FileID},
		}
		// Resolve the fetchable link up front; the intake needs both forms.
		if url, err := a.FileURL(rctx, m.Photo.FileID); err == nil {
			up.Photo.URL = url
		} else {
			a.log.Warn("file link resolution failed", logx.Err(err), logx.Int64("chat_id", m.Chat.ID))
		}
		a.push(out, up)
		return nil
	})

	go func() {
		defer a.runWG.Done()
		go func() {
			<-rctx.Done()
			a.bot.Stop()
		}()
		a.log.Info("polling started")
		a.bot.Start() // blocks until Stop() is called
	}()

	return nil
}

func (a *Adapter) push(out chan<- gateway.Update, up gateway.Update) {
	select {
	case out <- up:
	default:
		atomic.AddUint64(&a.droppedUpdates, 1)
	}
}

// classifyText splits commands from plain text. A command keeps its leading
// slash and loses any @botname suffix; the argument tail goes to Text.
func classifyText(m *tele.Message) gateway.Update {
	up := gateway.Update{
		Kind:     gateway.UpdateText,
		ChatID:   m.Chat.ID,
		Username: m.Sender.Username,
		Text:     m.Text,
	}
	if !strings.HasPrefix(m.Text, "/") {
		return up
	}
	cmd, args, _ := strings.Cut(m.Text, " ")
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	up.Kind = gateway.UpdateCommand
	up.Command = cmd
	up.Text = strings.TrimSpace(args)
	return up
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	if a.bot != nil {
		go a.bot.Stop()
	}

	done := make(chan struct{})
	go func() {
		a.runWG.Wait()
		close(done)
	}()

	// Grace window: keep shutdown snappy even if getUpdates is still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-done:
		a.log.Info("polling stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		a.log.Warn("telegram stop grace elapsed; continuing shutdown")
		return nil
	}
}

func (a *Adapter) SendText(ctx context.Context, to string, text string, opt *gateway.SendOptions) error {
	sendOpt := &tele.SendOptions{}
	if opt != nil && opt.Keyboard != nil {
		sendOpt.ReplyMarkup = replyMarkup(opt.Keyboard)
	}
	_, err := a.bot.Send(chatRef(to), text, sendOpt)
	return err
}

func (a *Adapter) SendPhoto(ctx context.Context, to string, photo gateway.Media, caption string) error {
	p := &tele.Photo{File: mediaFile(photo), Caption: caption}
	_, err := a.bot.Send(chatRef(to), p)
	return err
}

func (a *Adapter) SendAlbum(ctx context.Context, to string, photos []gateway.Media, firstCaption string) error {
	album := make(tele.Album, 0, len(photos))
	for i, m := range photos {
		p := &tele.Photo{File: mediaFile(m)}
		if i == 0 {
			p.Caption = firstCaption
		}
		album = append(album, p)
	}
	_, err := a.bot.SendAlbum(chatRef(to), album)
	return err
}

func (a *Adapter) SendDocument(ctx context.Context, to string, data []byte, filename, caption string) error {
	d := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: filename,
		Caption:  caption,
	}
	_, err := a.bot.Send(chatRef(to), d)
	return err
}

func (a *Adapter) FileURL(ctx context.Context, fileID string) (string, error) {
	f, err := a.bot.FileByID(fileID)
	if err != nil {
		return "", err
	}
	if f.FilePath == "" {
		return "", errors.New("telegram returned empty file path")
	}
	return "https://api.telegram.org/file/bot" + a.cfg.Token + "/" + f.FilePath, nil
}

func mediaFile(m gateway.Media) tele.File {
	if m.FileID != "" {
		return tele.File{FileID: m.FileID}
	}
	return tele.FromReader(bytes.NewReader(m.Data))
}

func replyMarkup(kb *gateway.Keyboard) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: kb.OneTime,
	}
	rows := make([]tele.Row, 0, len(kb.Rows))
	for _, r := range kb.Rows {
		row := make(tele.Row, 0, len(r))
		for _, label := range r {
			row = append(row, rm.Text(label))
		}
		rows = append(rows, row)
	}
	rm.Reply(rows...)
	return rm
}
