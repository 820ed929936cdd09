package orchestrator

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// TemplateCatalog holds ad-hoc provisioning rules in registration order and
// routes DIDs to the first matching rule. It only selects templates; the
// provisioning action lives in the orchestrator, so a failed provisioning
// never corrupts routing state.
type TemplateCatalog struct {
	mu       sync.Mutex
	ordered  []*ConferenceTemplate
	mixers   *MixerRegistry
	profiles *ProfileCatalog
	store    CatalogStore
	log      *slog.Logger
}

// NewTemplateCatalog returns an empty catalog. Mixer and profile references
// in added templates are validated against the given registries.
func NewTemplateCatalog(store CatalogStore, mixers *MixerRegistry, profiles *ProfileCatalog, log *slog.Logger) *TemplateCatalog {
	return &TemplateCatalog{
		mixers:   mixers,
		profiles: profiles,
		store:    store,
		log:      log,
	}
}

// Load populates the catalog from the persisted form, preserving order.
// Records whose mixer or profile is not registered are skipped and logged,
// as are records without a name or pattern.
func (c *TemplateCatalog) Load() error {
	recs, err := c.store.LoadTemplates()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	for _, rec := range recs {
		t := templateFromRecord(rec)
		if err := c.Add(t); err != nil {
			c.log.Warn("skipping template record", "template", rec.Name, "error", err)
		}
	}
	return nil
}

// Add appends a template to the catalog and persists it. It fails without
// mutation when the referenced mixer or profile is not currently registered,
// when the rule is malformed, or when the name is already taken.
func (c *TemplateCatalog) Add(t *ConferenceTemplate) error {
	if t.Name == "" || t.Pattern == "" {
		return fmt.Errorf("%w: template name and pattern required", ErrInvalidConfiguration)
	}
	if _, ok := c.mixers.Get(t.MixerUID); !ok {
		return fmt.Errorf("%w: %s", ErrMixerNotFound, t.MixerUID)
	}
	if _, ok := c.profiles.Get(t.ProfileUID); !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, t.ProfileUID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ex := range c.ordered {
		if ex.Name == t.Name {
			return fmt.Errorf("%w: template %q already exists", ErrInvalidConfiguration, t.Name)
		}
	}
	c.ordered = append(c.ordered, t)
	c.saveLocked()
	c.log.Info("template registered", "template", t.Name, "pattern", t.Pattern, "mixer", t.MixerUID)
	return nil
}

// Remove deletes the named template and persists the catalog.
func (c *TemplateCatalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.ordered {
		if t.Name == name {
			c.ordered = append(c.ordered[:i], c.ordered[i+1:]...)
			c.saveLocked()
			c.log.Info("template removed", "template", name)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// MatchFirst scans the catalog in registration order and returns the first
// template whose pattern accepts did.
func (c *TemplateCatalog) MatchFirst(did string) (*ConferenceTemplate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.ordered {
		if t.Matches(did) {
			return t, true
		}
	}
	return nil, false
}

// List returns a snapshot in registration order.
func (c *TemplateCatalog) List() []*ConferenceTemplate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ConferenceTemplate, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func (c *TemplateCatalog) saveLocked() {
	recs := make([]TemplateRecord, 0, len(c.ordered))
	for _, t := range c.ordered {
		recs = append(recs, TemplateRecord{
			Name:        t.Name,
			DID:         t.Pattern,
			Mixer:       t.MixerUID,
			Profile:     t.ProfileUID,
			Size:        t.Size,
			CompType:    int(t.CompType),
			VAD:         int(t.VAD),
			AudioCodecs: joinCodecs(t.AudioCodecs),
			VideoCodecs: joinCodecs(t.VideoCodecs),
			TextCodecs:  joinCodecs(t.TextCodecs),
		})
	}
	if err := c.store.SaveTemplates(recs); err != nil {
		c.log.Error("persist template catalog failed", "error", err)
	}
}

func templateFromRecord(rec TemplateRecord) *ConferenceTemplate {
	return &ConferenceTemplate{
		Name:        rec.Name,
		Pattern:     rec.DID,
		MixerUID:    rec.Mixer,
		ProfileUID:  rec.Profile,
		Size:        rec.Size,
		CompType:    CompositionType(rec.CompType),
		VAD:         VADMode(rec.VAD),
		AudioCodecs: ParseCodecList(rec.AudioCodecs),
		VideoCodecs: ParseCodecList(rec.VideoCodecs),
		TextCodecs:  ParseCodecList(rec.TextCodecs),
	}
}

func joinCodecs(codecs []string) string {
	return strings.Join(codecs, ",")
}
