package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockAdapter records calls and optionally fails them.
type mockAdapter struct {
	connectErr  error
	announceErr error
	closeErr    error

	connected bool
	closed    bool
	announced []Announcement
}

func (m *mockAdapter) Connect(ctx context.Context) error {
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *mockAdapter) Announce(ctx context.Context, a Announcement) error {
	if m.announceErr != nil {
		return m.announceErr
	}
	m.announced = append(m.announced, a)
	return nil
}

func (m *mockAdapter) Close() error {
	m.closed = true
	return m.closeErr
}

func TestFanout_Announce(t *testing.T) {
	a1 := &mockAdapter{}
	a2 := &mockAdapter{}
	f := NewFanout(a1, a2)

	ann := Announcement{MessageID: "m1", Content: "hello", SentAt: time.Now()}
	if err := f.Announce(context.Background(), ann); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a1.announced) != 1 || len(a2.announced) != 1 {
		t.Errorf("announced = %d/%d, want 1/1", len(a1.announced), len(a2.announced))
	}
	if a1.announced[0].MessageID != "m1" {
		t.Errorf("MessageID = %q", a1.announced[0].MessageID)
	}
}

func TestFanout_AnnounceFailureDoesNotBlockOthers(t *testing.T) {
	broken := errors.New("platform down")
	a1 := &mockAdapter{announceErr: broken}
	a2 := &mockAdapter{}
	f := NewFanout(a1, a2)

	err := f.Announce(context.Background(), Announcement{MessageID: "m1"})
	if !errors.Is(err, broken) {
		t.Errorf("err = %v, want wrapped platform error", err)
	}
	if len(a2.announced) != 1 {
		t.Errorf("healthy adapter announced = %d, want 1", len(a2.announced))
	}
}

func TestFanout_ConnectAndClose(t *testing.T) {
	a1 := &mockAdapter{}
	a2 := &mockAdapter{}
	f := NewFanout(a1, a2)

	if err := f.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !a1.connected || !a2.connected {
		t.Error("not all adapters connected")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !a1.closed || !a2.closed {
		t.Error("not all adapters closed")
	}
}

func TestFanout_ConnectStopsOnFirstError(t *testing.T) {
	broken := errors.New("bad token")
	a1 := &mockAdapter{connectErr: broken}
	a2 := &mockAdapter{}
	f := NewFanout(a1, a2)

	err := f.Connect(context.Background())
	if !errors.Is(err, broken) {
		t.Fatalf("err = %v, want wrapped connect error", err)
	}
	if a2.connected {
		t.Error("later adapter should not connect after failure")
	}
}

func TestImportanceColor(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name       string
		importance *int
		want       string
	}{
		{"unset", nil, "#439fe0"},
		{"low", intPtr(2), "#36a64f"},
		{"medium", intPtr(5), "#e8a317"},
		{"high", intPtr(9), "#d00000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImportanceColor(tt.importance); got != tt.want {
				t.Errorf("ImportanceColor = %s, want %s", got, tt.want)
			}
		})
	}
}
