package orchestrator

import (
	"errors"
	"testing"
)

func TestProfileCatalog(t *testing.T) {
	store := NewMemStore()
	cat := NewProfileCatalog(store, testLogger())

	p, err := cat.Add(Profile{UID: "p1", Name: "default", VideoSize: SizeCIF, VideoBitrate: 512, VideoFPS: 25, IntraPeriod: 30})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got, ok := cat.Get(p.UID); !ok || got.VideoBitrate != 512 {
		t.Errorf("Get = %v, %t", got, ok)
	}
	if len(store.Profiles) != 1 {
		t.Errorf("persisted %d records, want 1", len(store.Profiles))
	}

	t.Run("missing_uid_rejected", func(t *testing.T) {
		_, err := cat.Add(Profile{Name: "nameless"})
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("expected ErrInvalidConfiguration, got %v", err)
		}
	})

	t.Run("same_uid_replaces", func(t *testing.T) {
		if _, err := cat.Add(Profile{UID: "p1", Name: "hd", VideoSize: Size720p, VideoBitrate: 2048}); err != nil {
			t.Fatalf("Add: %v", err)
		}
		got, _ := cat.Get("p1")
		if got.Name != "hd" || got.VideoSize != Size720p {
			t.Errorf("replacement not applied: %+v", got)
		}
		if len(cat.List()) != 1 {
			t.Errorf("duplicate entry after replacement")
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := cat.Remove("p1"); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		if err := cat.Remove("p1"); !errors.Is(err, ErrProfileNotFound) {
			t.Errorf("expected ErrProfileNotFound, got %v", err)
		}
		if len(store.Profiles) != 0 {
			t.Errorf("persisted form not emptied")
		}
	})
}

func TestProfileCatalog_load(t *testing.T) {
	store := NewMemStore()
	store.Profiles = []ProfileRecord{
		{UID: "p1", Name: "default", VideoSize: int(SizeCIF), VideoBitrate: 512, VideoFPS: 25, IntraPeriod: 30},
		{Name: "no-uid"},
	}
	cat := NewProfileCatalog(store, testLogger())
	if err := cat.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cat.List()) != 1 {
		t.Errorf("loaded %d profiles, want just the valid one", len(cat.List()))
	}
	if got, ok := cat.Get("p1"); !ok || got.VideoSize != SizeCIF {
		t.Errorf("Get = %+v, %t", got, ok)
	}
}
