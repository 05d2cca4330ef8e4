// Package maintenance runs the scheduled housekeeping jobs. Currently a
// single cron entry: the periodic purge of old backend entries, with the
// outcome reported to every admin chat.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"estatebot/internal/backend"
	"estatebot/internal/gateway"
	"estatebot/pkg/logx"
)

type Scheduler struct {
	cron    *cron.Cron
	backend *backend.Client
	sender  gateway.Sender
	admins  []int64
	log     logx.Logger
}

// New builds a scheduler with the delete-old purge registered on spec.
// An empty spec yields a scheduler that does nothing.
func New(spec string, bc *backend.Client, sender gateway.Sender, admins []int64, log logx.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		backend: bc,
		sender:  sender,
		admins:  admins,
		log:     log,
	}
	if spec == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(spec, s.purgeOld); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) purgeOld() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := s.backend.DeleteOld(ctx)
	if err != nil {
		s.log.Error("scheduled purge failed", logx.Err(err))
		s.notifyAdmins(ctx, "⚠️ Плановое удаление старых объектов не удалось.")
		return
	}

	msg := res.Message
	if msg == "" {
		msg = "Плановое удаление старых объектов выполнено."
	}
	prefix := "✅ "
	if !res.Success {
		prefix = "❌ "
	}
	s.log.Info("scheduled purge finished", logx.Bool("success", res.Success), logx.String("message", res.Message))
	s.notifyAdmins(ctx, prefix+msg)
}

func (s *Scheduler) notifyAdmins(ctx context.Context, text string) {
	for _, id := range s.admins {
		if err := s.sender.SendText(ctx, gateway.ChatID(id), text, nil); err != nil {
			s.log.Error("admin notice failed", logx.Int64("chat_id", id), logx.Err(err))
		}
	}
}
