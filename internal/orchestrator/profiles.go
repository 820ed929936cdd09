package orchestrator

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ProfileCatalog is the catalog of encoding-quality presets. Pure value
// catalog: profiles referenced by conferences are captured by value at
// creation time, so removal never invalidates a live conference.
type ProfileCatalog struct {
	mu       sync.Mutex
	profiles map[string]Profile
	store    CatalogStore
	log      *slog.Logger
}

// NewProfileCatalog returns an empty catalog persisting through store.
func NewProfileCatalog(store CatalogStore, log *slog.Logger) *ProfileCatalog {
	return &ProfileCatalog{
		profiles: make(map[string]Profile),
		store:    store,
		log:      log,
	}
}

// Load populates the catalog from the persisted form. Records without a uid
// are skipped and logged.
func (c *ProfileCatalog) Load() error {
	recs, err := c.store.LoadProfiles()
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range recs {
		if rec.UID == "" {
			c.log.Warn("skipping profile record without uid", "name", rec.Name)
			continue
		}
		c.profiles[rec.UID] = Profile{
			UID:          rec.UID,
			Name:         rec.Name,
			VideoSize:    VideoSize(rec.VideoSize),
			VideoBitrate: rec.VideoBitrate,
			VideoFPS:     rec.VideoFPS,
			IntraPeriod:  rec.IntraPeriod,
		}
	}
	return nil
}

// Add registers a profile and persists the catalog before returning. An
// existing profile with the same uid is replaced whole.
func (c *ProfileCatalog) Add(p Profile) (Profile, error) {
	if p.UID == "" {
		return Profile{}, fmt.Errorf("%w: profile uid required", ErrInvalidConfiguration)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[p.UID] = p
	c.saveLocked()
	c.log.Info("profile registered",
		"profile", p.UID,
		"name", p.Name,
		"size", int(p.VideoSize),
		"bitrate", p.VideoBitrate,
		"fps", p.VideoFPS,
		"intra_period", p.IntraPeriod,
	)
	return p, nil
}

// Remove deletes the profile and persists the catalog.
func (c *ProfileCatalog) Remove(uid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.profiles[uid]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, uid)
	}
	delete(c.profiles, uid)
	c.saveLocked()
	c.log.Info("profile removed", "profile", uid)
	return nil
}

// Get returns the profile with the given uid.
func (c *ProfileCatalog) Get(uid string) (Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.profiles[uid]
	return p, ok
}

// List returns a snapshot sorted by name.
func (c *ProfileCatalog) List() []Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Profile, 0, len(c.profiles))
	for _, p := range c.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *ProfileCatalog) saveLocked() {
	recs := make([]ProfileRecord, 0, len(c.profiles))
	for _, p := range c.profiles {
		recs = append(recs, ProfileRecord{
			UID:          p.UID,
			Name:         p.Name,
			VideoSize:    int(p.VideoSize),
			VideoBitrate: p.VideoBitrate,
			VideoFPS:     p.VideoFPS,
			IntraPeriod:  p.IntraPeriod,
		})
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].UID < recs[j].UID })
	if err := c.store.SaveProfiles(recs); err != nil {
		c.log.Error("persist profile catalog failed", "error", err)
	}
}
