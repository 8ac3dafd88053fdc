// Package dispatch releases scheduled messages on a cron cadence and
// announces them to the configured chat platforms.
package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/zulandar/switchboard/internal/errs"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/notify"
	"gorm.io/gorm"
)

// Announcer posts one announcement to the chat platforms. notify.Fanout
// satisfies this; tests inject a recorder.
type Announcer interface {
	Announce(ctx context.Context, a notify.Announcement) error
}

// Dispatcher wakes on a cron schedule and announces messages whose
// scheduled send time has passed since the previous wake-up. Release
// itself needs no writes: pull queries hide a scheduled message until its
// send time, so the dispatcher only has to tell the outside world.
type Dispatcher struct {
	db        *gorm.DB
	announcer Announcer
	cronExpr  string

	mu         sync.Mutex
	lastCutoff time.Time
}

// Opts holds parameters for creating a Dispatcher.
type Opts struct {
	DB        *gorm.DB
	Announcer Announcer
	Cron      string // 5-field cron expression, e.g. "* * * * *"
}

// New creates a Dispatcher. The first run covers everything due up to that
// moment, starting from process start.
func New(opts Opts) (*Dispatcher, error) {
	if opts.Cron != "" && !ValidCron(opts.Cron) {
		return nil, errs.Validationf("dispatch: invalid cron expression %q", opts.Cron)
	}
	return &Dispatcher{
		db:         opts.DB,
		announcer:  opts.Announcer,
		cronExpr:   opts.Cron,
		lastCutoff: time.Now(),
	}, nil
}

// Due returns the messages whose scheduled send time falls in (since, until].
func Due(gdb *gorm.DB, since, until time.Time) ([]models.Message, error) {
	var msgs []models.Message
	err := gdb.Model(&models.Message{}).
		Joins("JOIN timed_messages tm ON tm.message_id = messages.id").
		Where("tm.send_at > ? AND tm.send_at <= ?", since, until).
		Order("tm.send_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, errs.Store("dispatch: due messages", err)
	}
	return msgs, nil
}

// RunOnce announces every message that became due since the last run and
// advances the cutoff to now. Returns the number of messages announced.
// The cutoff only advances when every announcement succeeded, so a failed
// platform gets the batch again on the next wake-up.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	now := time.Now()

	d.mu.Lock()
	since := d.lastCutoff
	d.mu.Unlock()

	msgs, err := Due(d.db, since, now)
	if err != nil {
		return 0, err
	}

	for _, msg := range msgs {
		ann, err := d.buildAnnouncement(msg)
		if err != nil {
			return 0, err
		}
		if err := d.announcer.Announce(ctx, ann); err != nil {
			return 0, err
		}
	}

	d.mu.Lock()
	d.lastCutoff = now
	d.mu.Unlock()
	return len(msgs), nil
}

// Run blocks until ctx is cancelled, firing RunOnce on the cron schedule.
// Announcement failures are logged, not fatal; the loop keeps its cadence.
func (d *Dispatcher) Run(ctx context.Context) {
	expr := d.cronExpr
	if expr == "" {
		expr = "* * * * *"
	}

	timer := time.NewTimer(nextCronDuration(expr))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if n, err := d.RunOnce(ctx); err != nil {
				log.Printf("dispatch: run: %v", err)
			} else if n > 0 {
				log.Printf("dispatch: announced %d released message(s)", n)
			}
			timer.Reset(nextCronDuration(expr))
		}
	}
}

// buildAnnouncement resolves the sender and recipient names for a message.
func (d *Dispatcher) buildAnnouncement(msg models.Message) (notify.Announcement, error) {
	ann := notify.Announcement{
		MessageID:  msg.ID,
		Content:    msg.Content,
		Importance: msg.Importance,
		SentAt:     msg.SentAt,
	}

	if msg.SenderID != nil {
		var sender models.Agent
		if err := d.db.First(&sender, "id = ?", *msg.SenderID).Error; err != nil {
			return ann, errs.Store("dispatch: load sender", err)
		}
		ann.SenderName = sender.AgentName
	}

	var recipients []models.Agent
	err := d.db.Model(&models.Agent{}).
		Joins("JOIN message_recipients mr ON mr.recipient_id = agents.id").
		Where("mr.message_id = ?", msg.ID).
		Find(&recipients).Error
	if err != nil {
		return ann, errs.Store("dispatch: load recipients", err)
	}
	for _, r := range recipients {
		ann.Recipients = append(ann.Recipients, r.AgentName)
	}
	return ann, nil
}
