package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/zulandar/switchboard/internal/errs"
	"github.com/zulandar/switchboard/internal/models"
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

func strPtr(v string) *string        { return &v }
func intPtr(v int) *int              { return &v }
func timePtr(v time.Time) *time.Time { return &v }

// --- CreateMessage ---

func TestCreateMessage(t *testing.T) {
	gdb := testDB(t)
	sender := makeAgent(t, gdb, "sender")

	msg, err := CreateMessage(gdb, MessageCreate{
		SenderID:    &sender.ID,
		Content:     "ping",
		MessageType: strPtr("heartbeat"),
		Importance:  intPtr(5),
		Metadata:    models.Document{"trace": "abc"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.ID == "" {
		t.Error("message ID not assigned")
	}
	if msg.SentAt.IsZero() {
		t.Error("SentAt not defaulted")
	}
	if msg.Content != "ping" {
		t.Errorf("Content = %q", msg.Content)
	}
}

func TestCreateMessage_EmptyContent(t *testing.T) {
	gdb := testDB(t)

	_, err := CreateMessage(gdb, MessageCreate{Content: ""})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCreateMessage_ImportanceOutOfRange(t *testing.T) {
	gdb := testDB(t)

	for _, imp := range []int{-1, 11} {
		_, err := CreateMessage(gdb, MessageCreate{Content: "x", Importance: intPtr(imp)})
		if !errors.Is(err, errs.ErrValidation) {
			t.Errorf("importance %d: err = %v, want ErrValidation", imp, err)
		}
	}
}

func TestCreateMessage_UnknownSender(t *testing.T) {
	gdb := testDB(t)

	_, err := CreateMessage(gdb, MessageCreate{Content: "x", SenderID: strPtr("missing")})
	if !errors.Is(err, errs.ErrReference) {
		t.Fatalf("err = %v, want ErrReference", err)
	}
	// Nothing was persisted.
	var count int64
	gdb.Model(&models.Message{}).Count(&count)
	if count != 0 {
		t.Errorf("message count = %d, want 0", count)
	}
}

func TestCreateMessage_UnknownConversation(t *testing.T) {
	gdb := testDB(t)

	_, err := CreateMessage(gdb, MessageCreate{Content: "x", ConversationID: strPtr("missing")})
	if !errors.Is(err, errs.ErrReference) {
		t.Fatalf("err = %v, want ErrReference", err)
	}
}

func TestCreateMessage_ReplyThread(t *testing.T) {
	gdb := testDB(t)

	parent, err := CreateMessage(gdb, MessageCreate{Content: "root"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	reply, err := CreateMessage(gdb, MessageCreate{Content: "re: root", ParentMessageID: &parent.ID})
	if err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if reply.ParentMessageID == nil || *reply.ParentMessageID != parent.ID {
		t.Errorf("ParentMessageID = %v, want %s", reply.ParentMessageID, parent.ID)
	}

	_, err = CreateMessage(gdb, MessageCreate{Content: "orphan", ParentMessageID: strPtr("missing")})
	if !errors.Is(err, errs.ErrReference) {
		t.Errorf("unknown parent: err = %v, want ErrReference", err)
	}
}

func TestCreateMessage_Scheduled(t *testing.T) {
	gdb := testDB(t)
	future := time.Now().Add(time.Hour)

	msg, err := CreateMessage(gdb, MessageCreate{Content: "later", ScheduleAt: &future})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var timed models.TimedMessage
	if err := gdb.First(&timed, "message_id = ?", msg.ID).Error; err != nil {
		t.Fatalf("timed row not created: %v", err)
	}
	if !timed.SendAt.Equal(future) && timed.SendAt.Unix() != future.Unix() {
		t.Errorf("SendAt = %v, want %v", timed.SendAt, future)
	}
}

// --- UpdateMessage ---

func TestUpdateMessage_RoundTrip(t *testing.T) {
	gdb := testDB(t)

	msg, err := CreateMessage(gdb, MessageCreate{Content: "X"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := UpdateMessage(gdb, msg.ID, MessageUpdate{Status: strPtr("archived")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Content != "X" {
		t.Errorf("Content = %q, want %q", updated.Content, "X")
	}
	if updated.Status == nil || *updated.Status != "archived" {
		t.Errorf("Status = %v, want archived", updated.Status)
	}

	var got models.Message
	if err := gdb.First(&got, "id = ?", msg.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Content != "X" || got.Status == nil || *got.Status != "archived" {
		t.Errorf("reloaded = content %q status %v", got.Content, got.Status)
	}
	if got.SenderID != nil || got.ConversationID != nil {
		t.Error("unrelated fields changed by update")
	}
}

func TestUpdateMessage_NotFound(t *testing.T) {
	gdb := testDB(t)

	_, err := UpdateMessage(gdb, "missing", MessageUpdate{Status: strPtr("x")})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateMessage_EmptyContent(t *testing.T) {
	gdb := testDB(t)

	msg, err := CreateMessage(gdb, MessageCreate{Content: "X"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = UpdateMessage(gdb, msg.ID, MessageUpdate{Content: strPtr("")})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

// --- CreateRecipient / UpdateRecipient ---

func TestCreateRecipient(t *testing.T) {
	gdb := testDB(t)
	recipient := makeAgent(t, gdb, "recipient")
	msg, err := CreateMessage(gdb, MessageCreate{Content: "hello"})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	rec, err := CreateRecipient(gdb, msg.ID, recipient.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.IsRead {
		t.Error("new recipient link should be unread")
	}
	if rec.ReadAt != nil {
		t.Error("ReadAt should be nil until marked read")
	}
}

func TestCreateRecipient_DuplicatePair(t *testing.T) {
	gdb := testDB(t)
	recipient := makeAgent(t, gdb, "recipient")
	msg, err := CreateMessage(gdb, MessageCreate{Content: "hello"})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	if _, err := CreateRecipient(gdb, msg.ID, recipient.ID); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err = CreateRecipient(gdb, msg.ID, recipient.ID)
	if !errors.Is(err, errs.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}

	var count int64
	gdb.Model(&models.MessageRecipient{}).Where("message_id = ?", msg.ID).Count(&count)
	if count != 1 {
		t.Errorf("recipient rows = %d, want exactly 1", count)
	}
}

func TestCreateRecipient_UnknownRefs(t *testing.T) {
	gdb := testDB(t)
	recipient := makeAgent(t, gdb, "recipient")
	msg, err := CreateMessage(gdb, MessageCreate{Content: "hello"})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	if _, err := CreateRecipient(gdb, "missing", recipient.ID); !errors.Is(err, errs.ErrReference) {
		t.Errorf("unknown message: err = %v, want ErrReference", err)
	}
	if _, err := CreateRecipient(gdb, msg.ID, "missing"); !errors.Is(err, errs.ErrReference) {
		t.Errorf("unknown agent: err = %v, want ErrReference", err)
	}
}

func TestUpdateRecipient(t *testing.T) {
	gdb := testDB(t)
	recipient := makeAgent(t, gdb, "recipient")
	msg, err := CreateMessage(gdb, MessageCreate{Content: "hello"})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if _, err := CreateRecipient(gdb, msg.ID, recipient.ID); err != nil {
		t.Fatalf("create recipient: %v", err)
	}

	readAt := time.Now()
	isRead := true
	rec, err := UpdateRecipient(gdb, msg.ID, recipient.ID, RecipientUpdate{IsRead: &isRead, ReadAt: timePtr(readAt)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !rec.IsRead || rec.ReadAt == nil {
		t.Errorf("rec = is_read %v read_at %v", rec.IsRead, rec.ReadAt)
	}
}

func TestUpdateRecipient_NotFound(t *testing.T) {
	gdb := testDB(t)

	isRead := true
	_, err := UpdateRecipient(gdb, "m", "a", RecipientUpdate{IsRead: &isRead})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// --- Metadata mutations ---

func TestCreateMetadata(t *testing.T) {
	gdb := testDB(t)
	msg, err := CreateMessage(gdb, MessageCreate{Content: "hello"})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	meta, err := CreateMetadata(gdb, msg.ID, "priority", strPtr("high"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.ID == "" {
		t.Error("metadata ID not assigned")
	}

	// Duplicate keys per message are allowed.
	if _, err := CreateMetadata(gdb, msg.ID, "priority", strPtr("low")); err != nil {
		t.Errorf("duplicate key insert: %v", err)
	}
}

func TestCreateMetadata_Errors(t *testing.T) {
	gdb := testDB(t)
	msg, err := CreateMessage(gdb, MessageCreate{Content: "hello"})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	if _, err := CreateMetadata(gdb, msg.ID, "", nil); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("empty key: err = %v, want ErrValidation", err)
	}
	if _, err := CreateMetadata(gdb, "missing", "k", nil); !errors.Is(err, errs.ErrReference) {
		t.Errorf("unknown message: err = %v, want ErrReference", err)
	}
}

func TestUpdateMetadata(t *testing.T) {
	gdb := testDB(t)
	msg, err := CreateMessage(gdb, MessageCreate{Content: "hello"})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	meta, err := CreateMetadata(gdb, msg.ID, "priority", strPtr("high"))
	if err != nil {
		t.Fatalf("create metadata: %v", err)
	}

	updated, err := UpdateMetadata(gdb, meta.ID, MetadataUpdate{Value: strPtr("low")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Key != "priority" || updated.Value == nil || *updated.Value != "low" {
		t.Errorf("updated = %q=%v", updated.Key, updated.Value)
	}

	if _, err := UpdateMetadata(gdb, "missing", MetadataUpdate{Value: strPtr("x")}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing row: err = %v, want ErrNotFound", err)
	}
	if _, err := UpdateMetadata(gdb, meta.ID, MetadataUpdate{Key: strPtr("")}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("empty key: err = %v, want ErrValidation", err)
	}
}
