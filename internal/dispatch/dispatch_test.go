package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zulandar/switchboard/internal/messaging"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/notify"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB creates an in-memory SQLite database with all required tables.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.Agent{},
		&models.Conversation{},
		&models.Message{},
		&models.MessageRecipient{},
		&models.AgentMessageMetadata{},
		&models.TimedMessage{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func makeAgent(t *testing.T, gdb *gorm.DB, name string) *models.Agent {
	t.Helper()
	agent := models.Agent{AgentName: name}
	if err := gdb.Create(&agent).Error; err != nil {
		t.Fatalf("create agent %s: %v", name, err)
	}
	return &agent
}

// schedule creates a message with the given send_at.
func schedule(t *testing.T, gdb *gorm.DB, sender *models.Agent, content string, sendAt time.Time, recipients ...*models.Agent) *models.Message {
	t.Helper()
	msg, err := messaging.CreateMessage(gdb, messaging.MessageCreate{
		SenderID:   &sender.ID,
		Content:    content,
		ScheduleAt: &sendAt,
	})
	if err != nil {
		t.Fatalf("schedule %q: %v", content, err)
	}
	for _, r := range recipients {
		if _, err := messaging.CreateRecipient(gdb, msg.ID, r.ID); err != nil {
			t.Fatalf("fan out %q: %v", content, err)
		}
	}
	return msg
}

// recorder captures announcements and optionally fails.
type recorder struct {
	err  error
	seen []notify.Announcement
}

func (r *recorder) Announce(ctx context.Context, a notify.Announcement) error {
	if r.err != nil {
		return r.err
	}
	r.seen = append(r.seen, a)
	return nil
}

func TestDue(t *testing.T) {
	gdb := testDB(t)
	alice := makeAgent(t, gdb, "alice")

	now := time.Now()
	early := schedule(t, gdb, alice, "early", now.Add(-2*time.Hour))
	mid := schedule(t, gdb, alice, "mid", now.Add(-time.Hour))
	schedule(t, gdb, alice, "future", now.Add(time.Hour))

	msgs, err := Due(gdb, now.Add(-90*time.Minute), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != mid.ID {
		t.Fatalf("due window should contain only mid, got %d", len(msgs))
	}

	msgs, err = Due(gdb, now.Add(-3*time.Hour), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	// Ascending send_at order.
	if msgs[0].ID != early.ID || msgs[1].ID != mid.ID {
		t.Error("due messages not in send_at order")
	}
}

func TestDue_UnscheduledExcluded(t *testing.T) {
	gdb := testDB(t)
	alice := makeAgent(t, gdb, "alice")

	if _, err := messaging.CreateMessage(gdb, messaging.MessageCreate{
		SenderID: &alice.ID, Content: "instant",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	msgs, err := Due(gdb, time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("unscheduled messages should not dispatch, got %d", len(msgs))
	}
}

func TestRunOnce(t *testing.T) {
	gdb := testDB(t)
	alice := makeAgent(t, gdb, "alice")
	bob := makeAgent(t, gdb, "bob")

	rec := &recorder{}
	d, err := New(Opts{DB: gdb, Announcer: rec, Cron: "* * * * *"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// Everything due after this point is fair game.
	d.lastCutoff = time.Now().Add(-time.Hour)

	schedule(t, gdb, alice, "standup in 5", time.Now().Add(-time.Minute), bob)

	n, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || len(rec.seen) != 1 {
		t.Fatalf("announced = %d/%d, want 1", n, len(rec.seen))
	}

	ann := rec.seen[0]
	if ann.SenderName != "alice" {
		t.Errorf("SenderName = %q", ann.SenderName)
	}
	if len(ann.Recipients) != 1 || ann.Recipients[0] != "bob" {
		t.Errorf("Recipients = %v", ann.Recipients)
	}
	if ann.Content != "standup in 5" {
		t.Errorf("Content = %q", ann.Content)
	}

	// A second run covers a fresh window; nothing new is due.
	n, err = d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 0 || len(rec.seen) != 1 {
		t.Errorf("second run announced %d, want 0", n)
	}
}

func TestRunOnce_FailureKeepsCutoff(t *testing.T) {
	gdb := testDB(t)
	alice := makeAgent(t, gdb, "alice")

	rec := &recorder{err: errors.New("platform down")}
	d, err := New(Opts{DB: gdb, Announcer: rec})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	d.lastCutoff = time.Now().Add(-time.Hour)

	schedule(t, gdb, alice, "retry me", time.Now().Add(-time.Minute))

	if _, err := d.RunOnce(context.Background()); err == nil {
		t.Fatal("expected announce failure")
	}

	// The platform recovers; the same message is announced on the next run.
	rec.err = nil
	n, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("recovery run: %v", err)
	}
	if n != 1 {
		t.Errorf("recovery announced %d, want 1", n)
	}
}

func TestNew_InvalidCron(t *testing.T) {
	_, err := New(Opts{Cron: "not a cron expr"})
	if err == nil {
		t.Fatal("expected error for invalid cron")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	gdb := testDB(t)
	d, err := New(Opts{DB: gdb, Announcer: &recorder{}, Cron: "* * * * *"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestNextCronDuration_ValidExpression(t *testing.T) {
	// "* * * * *" = every minute. Duration should be < 61s.
	d := nextCronDuration("* * * * *")
	if d <= 0 {
		t.Fatalf("expected positive duration, got %v", d)
	}
	if d > 61*time.Second {
		t.Fatalf("expected duration < 61s, got %v", d)
	}
}

func TestNextCronDuration_InvalidExpression(t *testing.T) {
	if d := nextCronDuration("not a cron expr"); d != 0 {
		t.Fatalf("expected 0 for invalid expression, got %v", d)
	}
}

func TestValidCron(t *testing.T) {
	if !ValidCron("0 9 * * *") {
		t.Error("daily 09:00 should be valid")
	}
	if ValidCron("@every 5x") {
		t.Error("garbage should be invalid")
	}
}
