package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MixerRecord is the persisted form of a MixerNode. The uid is not stored;
// it is re-derived from name and url at load time.
type MixerRecord struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	IP       string `yaml:"ip"`
	PublicIP string `yaml:"public_ip"`
	LocalNet string `yaml:"local_net,omitempty"`
}

// ProfileRecord is the persisted form of a Profile.
type ProfileRecord struct {
	UID          string `yaml:"uid"`
	Name         string `yaml:"name"`
	VideoSize    int    `yaml:"video_size"`
	VideoBitrate int    `yaml:"video_bitrate"`
	VideoFPS     int    `yaml:"video_fps"`
	IntraPeriod  int    `yaml:"intra_period"`
}

// TemplateRecord is the persisted form of a ConferenceTemplate. Records keep
// catalog order; first match wins at routing time.
type TemplateRecord struct {
	Name        string `yaml:"name"`
	DID         string `yaml:"did"`
	Mixer       string `yaml:"mixer"`
	Profile     string `yaml:"profile"`
	Size        int    `yaml:"size"`
	CompType    int    `yaml:"comp_type"`
	VAD         int    `yaml:"vad"`
	AudioCodecs string `yaml:"audio_codecs,omitempty"`
	VideoCodecs string `yaml:"video_codecs,omitempty"`
	TextCodecs  string `yaml:"text_codecs,omitempty"`
}

// CatalogStore is the persistence boundary for the mixer, profile and
// template catalogs. Implementations can be file-based or in-memory. Save
// failures leave in-memory state authoritative; callers log and continue.
type CatalogStore interface {
	LoadMixers() ([]MixerRecord, error)
	SaveMixers([]MixerRecord) error
	LoadProfiles() ([]ProfileRecord, error)
	SaveProfiles([]ProfileRecord) error
	LoadTemplates() ([]TemplateRecord, error)
	SaveTemplates([]TemplateRecord) error
}

const (
	mixersFile    = "mixers.yaml"
	profilesFile  = "profiles.yaml"
	templatesFile = "templates.yaml"
)

type mixersDoc struct {
	Mixers []MixerRecord `yaml:"mixers"`
}

type profilesDoc struct {
	Profiles []ProfileRecord `yaml:"profiles"`
}

type templatesDoc struct {
	Templates []TemplateRecord `yaml:"templates"`
}

// FileStore persists catalogs as yaml files under a directory. A missing
// file loads as an empty catalog.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// LoadMixers implements CatalogStore.LoadMixers.
func (s *FileStore) LoadMixers() ([]MixerRecord, error) {
	var doc mixersDoc
	if err := s.read(mixersFile, &doc); err != nil {
		return nil, err
	}
	return doc.Mixers, nil
}

// SaveMixers implements CatalogStore.SaveMixers.
func (s *FileStore) SaveMixers(recs []MixerRecord) error {
	return s.write(mixersFile, mixersDoc{Mixers: recs})
}

// LoadProfiles implements CatalogStore.LoadProfiles.
func (s *FileStore) LoadProfiles() ([]ProfileRecord, error) {
	var doc profilesDoc
	if err := s.read(profilesFile, &doc); err != nil {
		return nil, err
	}
	return doc.Profiles, nil
}

// SaveProfiles implements CatalogStore.SaveProfiles.
func (s *FileStore) SaveProfiles(recs []ProfileRecord) error {
	return s.write(profilesFile, profilesDoc{Profiles: recs})
}

// LoadTemplates implements CatalogStore.LoadTemplates.
func (s *FileStore) LoadTemplates() ([]TemplateRecord, error) {
	var doc templatesDoc
	if err := s.read(templatesFile, &doc); err != nil {
		return nil, err
	}
	return doc.Templates, nil
}

// SaveTemplates implements CatalogStore.SaveTemplates.
func (s *FileStore) SaveTemplates(recs []TemplateRecord) error {
	return s.write(templatesFile, templatesDoc{Templates: recs})
}

func (s *FileStore) read(name string, out any) error {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) write(name string, doc any) error {
	b, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// MemStore is an in-memory CatalogStore for tests and ephemeral deployments.
// SaveErr, when set, is returned by every save call.
type MemStore struct {
	Mixers    []MixerRecord
	Profiles  []ProfileRecord
	Templates []TemplateRecord
	SaveErr   error
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// LoadMixers implements CatalogStore.LoadMixers.
func (s *MemStore) LoadMixers() ([]MixerRecord, error) { return s.Mixers, nil }

// SaveMixers implements CatalogStore.SaveMixers.
func (s *MemStore) SaveMixers(recs []MixerRecord) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Mixers = recs
	return nil
}

// LoadProfiles implements CatalogStore.LoadProfiles.
func (s *MemStore) LoadProfiles() ([]ProfileRecord, error) { return s.Profiles, nil }

// SaveProfiles implements CatalogStore.SaveProfiles.
func (s *MemStore) SaveProfiles(recs []ProfileRecord) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Profiles = recs
	return nil
}

// LoadTemplates implements CatalogStore.LoadTemplates.
func (s *MemStore) LoadTemplates() ([]TemplateRecord, error) { return s.Templates, nil }

// SaveTemplates implements CatalogStore.SaveTemplates.
func (s *MemStore) SaveTemplates(recs []TemplateRecord) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Templates = recs
	return nil
}
