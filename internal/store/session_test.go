package store

import (
	"errors"
	"testing"
	"time"
)

func TestSessionRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{ID: "sess-1", Mode: "gesture", Seed: 42}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.StartedAt.IsZero() {
		t.Error("StartedAt should be set after create")
	}

	got, err := repo.GetByID("sess-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Mode != "gesture" {
		t.Errorf("Mode = %q, want gesture", got.Mode)
	}
	if got.Seed != 42 {
		t.Errorf("Seed = %d, want 42", got.Seed)
	}
	if got.EndedAt != nil {
		t.Errorf("EndedAt = %v, want nil", got.EndedAt)
	}
	if d := got.StartedAt.Sub(sess.StartedAt); d > time.Second || d < -time.Second {
		t.Errorf("StartedAt = %v, want about %v", got.StartedAt, sess.StartedAt)
	}
}

func TestSessionRepository_RejectsBadMode(t *testing.T) {
	s := newTestStore(t)

	if err := s.Sessions().Create(&Session{ID: "x", Mode: "dance"}); err == nil {
		t.Error("Create() with invalid mode should fail")
	}
}

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Sessions().GetByID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		sess := &Session{ID: id, Mode: "ambient", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(sess); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	sessions, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("List() returned %d sessions, want 3", len(sessions))
	}

	want := []string{"new", "mid", "old"}
	for i, sess := range sessions {
		if sess.ID != want[i] {
			t.Errorf("sessions[%d].ID = %q, want %q", i, sess.ID, want[i])
		}
	}
}

func TestSessionRepository_End(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	if err := repo.Create(&Session{ID: "sess-1", Mode: "ambient"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	end := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	if err := repo.End("sess-1", end); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	got, err := repo.GetByID("sess-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.EndedAt == nil {
		t.Fatal("EndedAt should be set after End()")
	}
	if !got.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, end)
	}

	if err := repo.End("missing", end); !errors.Is(err, ErrNotFound) {
		t.Errorf("End(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)

	if err := s.Sessions().Create(&Session{ID: "sess-1", Mode: "ambient"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Events().Create(&Event{SessionID: "sess-1", Tick: 1, Gesture: "reverb", Source: "motion"}); err != nil {
		t.Fatalf("Events().Create() error = %v", err)
	}

	if err := s.Sessions().Delete("sess-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	n, err := s.Events().CountBySession("sess-1")
	if err != nil {
		t.Fatalf("CountBySession() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountBySession() = %d after delete, want 0", n)
	}

	if err := s.Sessions().Delete("sess-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
