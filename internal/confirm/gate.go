// Package confirm guards sensitive actions behind a yes/no prompt. Each
// chat has at most one pending action; asking again overwrites it, and a
// reply of any kind consumes it. Records never expire on their own: a
// pending action survives until the admin answers or replaces it.
package confirm

import (
	"context"
	"strings"
	"time"

	"estatebot/internal/gateway"
	"estatebot/pkg/logx"
)

type Action string

const (
	ActionCreateProperty Action = "createProperty"
	ActionCreateNews     Action = "createNews"
	ActionDeleteAll      Action = "deleteAll"
	ActionDeleteDrafts   Action = "deleteDrafts"
	ActionDeleteOld      Action = "deleteOld"
	ActionDeleteByID     Action = "deleteById"
	ActionDeleteByTitle  Action = "deleteByTitle"
)

const (
	BtnYes = "✅ Да"
	BtnNo  = "❌ Нет"

	cancelledMsg = "❌ Действие отменено."
)

// Pending is one stored confirmation request. Payload is whatever the
// executor needs to perform the action.
type Pending struct {
	Action    Action
	Payload   any
	CreatedAt time.Time
}

// Executor performs a confirmed action. It reports outcomes to the chat
// itself; the gate only routes.
type Executor interface {
	Execute(ctx context.Context, chatID int64, p Pending)
}

type Gate struct {
	sender  gateway.Sender
	exec    Executor
	log     logx.Logger
	pending map[int64]Pending
	now     func() time.Time
}

func NewGate(sender gateway.Sender, exec Executor, log logx.Logger) *Gate {
	return &Gate{
		sender:  sender,
		exec:    exec,
		log:     log,
		pending: make(map[int64]Pending),
		now:     time.Now,
	}
}

// Ask stores the pending action (replacing any prior one for this chat)
// and presents the binary choice.
func (g *Gate) Ask(ctx context.Context, chatID int64, action Action, payload any, prompt string) {
	g.pending[chatID] = Pending{Action: action, Payload: payload, CreatedAt: g.now()}

	kb := &gateway.Keyboard{
		Rows:    [][]string{{BtnYes, BtnNo}},
		OneTime: true,
	}
	if err := g.sender.SendText(ctx, gateway.ChatID(chatID), prompt, &gateway.SendOptions{Keyboard: kb}); err != nil {
		g.log.Error("confirmation prompt failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

// Resolve consumes the chat's pending action, if any. The record is
// removed before the reply is classified, so exactly one dispatch can
// happen per Ask no matter what the reply says. Returns false when there
// was nothing pending and the caller should handle the reply itself.
func (g *Gate) Resolve(ctx context.Context, chatID int64, reply string) bool {
	p, ok := g.pending[chatID]
	if !ok {
		return false
	}
	delete(g.pending, chatID)

	if !affirmative(reply) {
		g.log.Info("action cancelled", logx.Int64("chat_id", chatID), logx.String("action", string(p.Action)))
		if err := g.sender.SendText(ctx, gateway.ChatID(chatID), cancelledMsg, nil); err != nil {
			g.log.Error("cancel notice failed", logx.Int64("chat_id", chatID), logx.Err(err))
		}
		return true
	}

	g.log.Info("action confirmed", logx.Int64("chat_id", chatID), logx.String("action", string(p.Action)))
	g.exec.Execute(ctx, chatID, p)
	return true
}

// PendingCount reports how many chats are waiting on a confirmation.
func (g *Gate) PendingCount() int { return len(g.pending) }

func affirmative(reply string) bool {
	return reply == BtnYes || strings.Contains(strings.ToLower(reply), "да")
}
