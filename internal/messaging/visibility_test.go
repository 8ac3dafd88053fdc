package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/zulandar/switchboard/internal/errs"
)

func TestCanViewMessage(t *testing.T) {
	gdb := testDB(t)
	alice := makeAgent(t, gdb, "alice")
	bob := makeAgent(t, gdb, "bob")
	carol := makeAgent(t, gdb, "carol")

	msg := sendTo(t, gdb, alice, "secret", time.Now(), bob)

	tests := []struct {
		name    string
		agentID string
		want    bool
	}{
		{"sender", alice.ID, true},
		{"recipient", bob.ID, true},
		{"third party", carol.ID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanViewMessage(gdb, tt.agentID, msg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanViewMessage = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanViewMessage_NoSender(t *testing.T) {
	gdb := testDB(t)
	bob := makeAgent(t, gdb, "bob")

	msg, err := CreateMessage(gdb, MessageCreate{Content: "system notice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := CreateRecipient(gdb, msg.ID, bob.ID); err != nil {
		t.Fatalf("fan out: %v", err)
	}

	got, err := CanViewMessage(gdb, bob.ID, msg)
	if err != nil || !got {
		t.Errorf("recipient of senderless message: %v, %v; want true", got, err)
	}
}

func TestCanViewMetadata_Delegates(t *testing.T) {
	gdb := testDB(t)
	alice := makeAgent(t, gdb, "alice")
	bob := makeAgent(t, gdb, "bob")
	carol := makeAgent(t, gdb, "carol")

	msg := sendTo(t, gdb, alice, "secret", time.Now(), bob)

	if ok, err := CanViewMetadata(gdb, bob.ID, msg.ID); err != nil || !ok {
		t.Errorf("recipient: %v, %v; want true", ok, err)
	}
	if ok, err := CanViewMetadata(gdb, carol.ID, msg.ID); err != nil || ok {
		t.Errorf("third party: %v, %v; want false", ok, err)
	}

	_, err := CanViewMetadata(gdb, bob.ID, "missing")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing message: err = %v, want ErrNotFound", err)
	}
}
