package orchestrator

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeConference implements Conference, recording calls and honoring the
// ended-callback contract on Destroy.
type fakeConference struct {
	mu        sync.Mutex
	uid       string
	name      string
	did       string
	mixerUID  string
	adHoc     bool
	listeners []ConferenceListener
	inited    bool
	destroyed bool
	calls     []string
	events    *eventLog

	initErr    error
	codecErr   error
	destroyErr error

	participantErr error
	nextPartID     int
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (e *eventLog) add(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, s)
}

func (e *eventLog) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	copy(out, e.events)
	return out
}

func (c *fakeConference) record(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, s)
}

func (c *fakeConference) UID() string      { return c.uid }
func (c *fakeConference) Name() string     { return c.name }
func (c *fakeConference) DID() string      { return c.did }
func (c *fakeConference) MixerUID() string { return c.mixerUID }
func (c *fakeConference) AdHoc() bool      { return c.adHoc }

func (c *fakeConference) Init() error {
	c.mu.Lock()
	c.inited = true
	c.mu.Unlock()
	if c.events != nil {
		c.events.add("init:" + c.uid)
	}
	return c.initErr
}

func (c *fakeConference) Destroy() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true
	ls := make([]ConferenceListener, len(c.listeners))
	copy(ls, c.listeners)
	c.mu.Unlock()
	for _, l := range ls {
		l.OnConferenceEnded(c)
	}
	return c.destroyErr
}

func (c *fakeConference) wasDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (c *fakeConference) AddListener(l ConferenceListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *fakeConference) SetProfile(p Profile) error {
	c.record("SetProfile:" + p.UID)
	return nil
}

func (c *fakeConference) SetCompositionType(mosaicID int, comp CompositionType, size VideoSize) error {
	c.record(fmt.Sprintf("SetCompositionType:%d:%d:%d", mosaicID, comp, size))
	return nil
}

func (c *fakeConference) SetCodecs(kind MediaKind, codecs []string) error {
	c.record(fmt.Sprintf("SetCodecs:%s:%d", kind, len(codecs)))
	return c.codecErr
}

func (c *fakeConference) AddViewerToken() (RTMPURL, error) {
	c.record("AddViewerToken")
	return RTMPURL{URL: "rtmp://host/mcu/watcher/tok", Tag: c.uid}, nil
}

func (c *fakeConference) CreateParticipant(ptype ParticipantType, name string, mosaicID, sidebarID int) (Participant, error) {
	if c.participantErr != nil {
		return nil, c.participantErr
	}
	c.mu.Lock()
	c.nextPartID++
	id := c.nextPartID
	c.mu.Unlock()
	c.record("CreateParticipant:" + name)
	return &fakeParticipant{id: id, name: name}, nil
}

func (c *fakeConference) CallParticipant(dest, proxy string) (Participant, error) {
	c.record("CallParticipant:" + dest)
	return &fakeParticipant{id: 99, name: dest}, nil
}

func (c *fakeConference) AcceptParticipant(partID, mosaicID, sidebarID int) error {
	c.record(fmt.Sprintf("AcceptParticipant:%d", partID))
	return nil
}

func (c *fakeConference) RejectParticipant(partID int) error {
	c.record(fmt.Sprintf("RejectParticipant:%d", partID))
	return nil
}

func (c *fakeConference) RemoveParticipant(partID int) error {
	c.record(fmt.Sprintf("RemoveParticipant:%d", partID))
	return nil
}

func (c *fakeConference) SetParticipantAudioMute(partID int, muted bool) error {
	c.record(fmt.Sprintf("SetParticipantAudioMute:%d:%t", partID, muted))
	return nil
}

func (c *fakeConference) SetParticipantVideoMute(partID int, muted bool) error {
	c.record(fmt.Sprintf("SetParticipantVideoMute:%d:%t", partID, muted))
	return nil
}

func (c *fakeConference) ChangeParticipantProfile(partID int, p Profile) error {
	c.record(fmt.Sprintf("ChangeParticipantProfile:%d:%s", partID, p.UID))
	return nil
}

func (c *fakeConference) CreateMosaic(comp CompositionType, size VideoSize) (int, error) {
	c.record("CreateMosaic")
	return 7, nil
}

func (c *fakeConference) DeleteMosaic(mosaicID int) error {
	c.record(fmt.Sprintf("DeleteMosaic:%d", mosaicID))
	return nil
}

func (c *fakeConference) SetMosaicOverlayImage(mosaicID int, filename string) error {
	c.record(fmt.Sprintf("SetMosaicOverlayImage:%d:%s", mosaicID, filename))
	return nil
}

func (c *fakeConference) ResetMosaicOverlay(mosaicID int) error {
	c.record(fmt.Sprintf("ResetMosaicOverlay:%d", mosaicID))
	return nil
}

func (c *fakeConference) AddMosaicParticipant(mosaicID, partID int) error {
	c.record(fmt.Sprintf("AddMosaicParticipant:%d:%d", mosaicID, partID))
	return nil
}

func (c *fakeConference) RemoveMosaicParticipant(mosaicID, partID int) error {
	c.record(fmt.Sprintf("RemoveMosaicParticipant:%d:%d", mosaicID, partID))
	return nil
}

func (c *fakeConference) SetMosaicSlot(mosaicID, slot, partID int) error {
	c.record(fmt.Sprintf("SetMosaicSlot:%d:%d:%d", mosaicID, slot, partID))
	return nil
}

func (c *fakeConference) RequestFPU(partID int) error {
	c.record(fmt.Sprintf("RequestFPU:%d", partID))
	return nil
}

type fakeParticipant struct {
	mu      sync.Mutex
	id      int
	name    string
	invited bool
}

func (p *fakeParticipant) ID() int      { return p.id }
func (p *fakeParticipant) Name() string { return p.name }

func (p *fakeParticipant) HandleInvite(req *InviteRequest, sink ResponseSink) error {
	p.mu.Lock()
	p.invited = true
	p.mu.Unlock()
	return sink.Final(200, "OK")
}

// fakeFactory implements ConferenceFactory. delay widens the race window for
// concurrency tests; onNew hooks test-controlled interleavings.
type fakeFactory struct {
	mu      sync.Mutex
	err     error
	delay   time.Duration
	events  *eventLog
	created []*fakeConference

	initErr  error
	codecErr error
	onNew    func(p ConferenceParams)
}

func (f *fakeFactory) New(p ConferenceParams) (Conference, error) {
	if f.onNew != nil {
		f.onNew(p)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	conf := &fakeConference{
		uid:      p.UID,
		name:     p.Name,
		did:      p.DID,
		mixerUID: p.Mixer.UID,
		adHoc:    p.AdHoc,
		events:   f.events,
		initErr:  f.initErr,
		codecErr: f.codecErr,
	}
	f.mu.Lock()
	f.created = append(f.created, conf)
	f.mu.Unlock()
	return conf, nil
}

func (f *fakeFactory) allCreated() []*fakeConference {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeConference, len(f.created))
	copy(out, f.created)
	return out
}

// fakeBroadcaster implements BroadcastControl with injectable failures.
type fakeBroadcaster struct {
	mu        sync.Mutex
	nextID    int
	createErr error
	publish   error
	unpublish error
	deleteErr error
	tokenErr  error
	calls     []string
}

func (b *fakeBroadcaster) record(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, s)
}

func (b *fakeBroadcaster) CreateBroadcast(name, tag string) (int, error) {
	b.record("create:" + name)
	if b.createErr != nil {
		return 0, b.createErr
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.mu.Unlock()
	return id, nil
}

func (b *fakeBroadcaster) PublishBroadcast(sessionID int, tag string) error {
	b.record(fmt.Sprintf("publish:%d:%s", sessionID, tag))
	return b.publish
}

func (b *fakeBroadcaster) UnpublishBroadcast(sessionID int) error {
	b.record(fmt.Sprintf("unpublish:%d", sessionID))
	return b.unpublish
}

func (b *fakeBroadcaster) DeleteBroadcast(sessionID int) error {
	b.record(fmt.Sprintf("delete:%d", sessionID))
	return b.deleteErr
}

func (b *fakeBroadcaster) AddBroadcastToken(sessionID int, token string) error {
	b.record(fmt.Sprintf("token:%d:%s", sessionID, token))
	return b.tokenErr
}

type fakeClientFactory struct {
	broadcaster *fakeBroadcaster
	err         error
}

func (f *fakeClientFactory) Broadcaster(node *MixerNode) (BroadcastControl, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.broadcaster, nil
}

// recordingListener records orchestrator-level notifications.
type recordingListener struct {
	mu        sync.Mutex
	created   []string
	destroyed []string
	events    *eventLog
}

func (l *recordingListener) OnConferenceCreated(conf Conference) {
	l.mu.Lock()
	l.created = append(l.created, conf.UID())
	l.mu.Unlock()
	if l.events != nil {
		l.events.add("created:" + conf.UID())
	}
}

func (l *recordingListener) OnConferenceDestroyed(confID string) {
	l.mu.Lock()
	l.destroyed = append(l.destroyed, confID)
	l.mu.Unlock()
	if l.events != nil {
		l.events.add("destroyed:" + confID)
	}
}

type testEnv struct {
	orch    *Orchestrator
	factory *fakeFactory
	bcaster *fakeBroadcaster
	store   *MemStore
	mixer   *MixerNode
	profile Profile
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := testLogger()
	store := NewMemStore()
	mixers := NewMixerRegistry(store, log)
	profiles := NewProfileCatalog(store, log)
	templates := NewTemplateCatalog(store, mixers, profiles, log)

	mixer, err := mixers.Add("m1", "http://10.0.0.1:8080/mcu", "10.0.0.1", "1.2.3.4", "10.0.0.0/24")
	if err != nil {
		t.Fatalf("add mixer: %v", err)
	}
	profile, err := profiles.Add(Profile{UID: "p1", Name: "default", VideoSize: SizeCIF, VideoBitrate: 512, VideoFPS: 25, IntraPeriod: 30})
	if err != nil {
		t.Fatalf("add profile: %v", err)
	}

	factory := &fakeFactory{}
	bcaster := &fakeBroadcaster{}
	orch := New(log, mixers, profiles, templates, factory, &fakeClientFactory{broadcaster: bcaster})
	return &testEnv{
		orch:    orch,
		factory: factory,
		bcaster: bcaster,
		store:   store,
		mixer:   mixer,
		profile: profile,
	}
}

func (e *testEnv) addTemplate(t *testing.T, name, pattern string) *ConferenceTemplate {
	t.Helper()
	tmpl := &ConferenceTemplate{
		Name:        name,
		Pattern:     pattern,
		MixerUID:    e.mixer.UID,
		ProfileUID:  e.profile.UID,
		Size:        6,
		CompType:    CompositionMosaic,
		VAD:         VADNone,
		AudioCodecs: []string{"PCMU", "OPUS"},
	}
	if err := e.orch.routes.Add(tmpl); err != nil {
		t.Fatalf("add template: %v", err)
	}
	return tmpl
}

func TestCreateConference(t *testing.T) {
	env := newTestEnv(t)

	conf, err := env.orch.CreateConference("room1", "+1000", env.mixer.UID, 6, CompositionMosaic, VADNone, "p1",
		CodecLists{Audio: ParseCodecList("PCMU,OPUS"), Video: ParseCodecList("VP8,H264")})
	if err != nil {
		t.Fatalf("CreateConference: %v", err)
	}
	if conf.DID() != "+1000" {
		t.Errorf("DID = %q, want +1000", conf.DID())
	}
	if conf.AdHoc() {
		t.Error("explicit creation must not be ad-hoc")
	}

	got, err := env.orch.GetConference(conf.UID())
	if err != nil {
		t.Fatalf("GetConference: %v", err)
	}
	if got.UID() != conf.UID() {
		t.Errorf("registry returned %q, want %q", got.UID(), conf.UID())
	}

	fc := env.factory.allCreated()[0]
	if !fc.inited {
		t.Error("conference not inited")
	}

	t.Run("duplicate_did_rejected", func(t *testing.T) {
		_, err := env.orch.CreateConference("other", "+1000", env.mixer.UID, 4, CompositionSingle, VADFull, "p1", CodecLists{})
		if !errors.Is(err, ErrDuplicateDID) {
			t.Fatalf("expected ErrDuplicateDID, got %v", err)
		}
		if n := env.orch.ActiveConferenceCount(); n != 1 {
			t.Errorf("active conferences = %d, want 1", n)
		}
	})

	t.Run("unknown_mixer", func(t *testing.T) {
		_, err := env.orch.CreateConference("x", "+2000", "nope", 6, CompositionMosaic, VADNone, "p1", CodecLists{})
		if !errors.Is(err, ErrMixerNotFound) {
			t.Errorf("expected ErrMixerNotFound, got %v", err)
		}
	})

	t.Run("unknown_profile", func(t *testing.T) {
		_, err := env.orch.CreateConference("x", "+2000", env.mixer.UID, 6, CompositionMosaic, VADNone, "nope", CodecLists{})
		if !errors.Is(err, ErrProfileNotFound) {
			t.Errorf("expected ErrProfileNotFound, got %v", err)
		}
	})
}

func TestCreateConference_remote_failure(t *testing.T) {
	env := newTestEnv(t)
	env.factory.err = errors.New("node unreachable")

	_, err := env.orch.CreateConference("room", "+1000", env.mixer.UID, 6, CompositionMosaic, VADNone, "p1", CodecLists{})
	if !errors.Is(err, ErrRemoteProvisioning) {
		t.Fatalf("expected ErrRemoteProvisioning, got %v", err)
	}
	if n := env.orch.ActiveConferenceCount(); n != 0 {
		t.Errorf("active conferences = %d, want 0", n)
	}
}

func TestCreateConference_codec_failure_rolls_back(t *testing.T) {
	env := newTestEnv(t)
	env.factory.codecErr = errors.New("unsupported codec")

	_, err := env.orch.CreateConference("room", "+1000", env.mixer.UID, 6, CompositionMosaic, VADNone, "p1",
		CodecLists{Audio: []string{"PCMU"}})
	if !errors.Is(err, ErrRemoteProvisioning) {
		t.Fatalf("expected ErrRemoteProvisioning, got %v", err)
	}
	if fc := env.factory.allCreated()[0]; !fc.wasDestroyed() {
		t.Error("partially created conference not destroyed")
	}
	if n := env.orch.ActiveConferenceCount(); n != 0 {
		t.Errorf("active conferences = %d, want 0", n)
	}
}

func TestCreateConference_init_failure_rolls_back(t *testing.T) {
	env := newTestEnv(t)
	env.factory.initErr = errors.New("init refused")
	listener := &recordingListener{}
	env.orch.AddListener(listener)

	_, err := env.orch.CreateConference("room", "+1000", env.mixer.UID, 6, CompositionMosaic, VADNone, "p1", CodecLists{})
	if !errors.Is(err, ErrRemoteProvisioning) {
		t.Fatalf("expected ErrRemoteProvisioning, got %v", err)
	}
	if n := env.orch.ActiveConferenceCount(); n != 0 {
		t.Errorf("active conferences = %d, want 0", n)
	}
	// Rollback goes through the normal destroy path, so both notifications
	// fired exactly once.
	if len(listener.created) != 1 || len(listener.destroyed) != 1 {
		t.Errorf("notifications created=%d destroyed=%d, want 1/1", len(listener.created), len(listener.destroyed))
	}
}

func TestCreateConference_concurrent_same_did(t *testing.T) {
	env := newTestEnv(t)
	env.factory.delay = 5 * time.Millisecond

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.orch.CreateConference(fmt.Sprintf("room%d", i), "+1000", env.mixer.UID,
				6, CompositionMosaic, VADNone, "p1", CodecLists{})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrDuplicateDID):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	if n := env.orch.ActiveConferenceCount(); n != 1 {
		t.Errorf("active conferences = %d, want 1", n)
	}
	// Every losing conference that was provisioned remotely must have been
	// rolled back.
	destroyed := 0
	for _, fc := range env.factory.allCreated() {
		if fc.wasDestroyed() {
			destroyed++
		}
	}
	if want := len(env.factory.allCreated()) - 1; destroyed != want {
		t.Errorf("destroyed = %d, want %d", destroyed, want)
	}
}

func TestCreateConference_notification_ordering(t *testing.T) {
	env := newTestEnv(t)
	events := &eventLog{}
	env.factory.events = events
	env.orch.AddListener(&recordingListener{events: events})

	conf, err := env.orch.CreateConference("room", "+1000", env.mixer.UID, 6, CompositionMosaic, VADNone, "p1", CodecLists{})
	if err != nil {
		t.Fatalf("CreateConference: %v", err)
	}

	got := events.snapshot()
	want := []string{"created:" + conf.UID(), "init:" + conf.UID()}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("event order = %v, want %v", got, want)
	}
}

func TestRemoveConference(t *testing.T) {
	env := newTestEnv(t)
	listener := &recordingListener{}
	env.orch.AddListener(listener)

	t.Run("unknown_id", func(t *testing.T) {
		err := env.orch.RemoveConference("missing")
		if !errors.Is(err, ErrConferenceNotFound) {
			t.Fatalf("expected ErrConferenceNotFound, got %v", err)
		}
	})

	conf, err := env.orch.CreateConference("room", "+1000", env.mixer.UID, 6, CompositionMosaic, VADNone, "p1", CodecLists{})
	if err != nil {
		t.Fatalf("CreateConference: %v", err)
	}

	if err := env.orch.RemoveConference(conf.UID()); err != nil {
		t.Fatalf("RemoveConference: %v", err)
	}
	if _, err := env.orch.GetConference(conf.UID()); !errors.Is(err, ErrConferenceNotFound) {
		t.Errorf("conference still registered after removal")
	}
	if len(listener.destroyed) != 1 || listener.destroyed[0] != conf.UID() {
		t.Errorf("destroyed notifications = %v, want [%s]", listener.destroyed, conf.UID())
	}

	t.Run("destroyed_notification_exactly_once", func(t *testing.T) {
		// A second destroy on the same conference must not re-notify.
		fc := env.factory.allCreated()[0]
		fc.mu.Lock()
		fc.destroyed = false
		fc.mu.Unlock()
		_ = fc.Destroy()
		if len(listener.destroyed) != 1 {
			t.Errorf("destroyed notifications = %d, want 1", len(listener.destroyed))
		}
	})
}

func TestFetchConferenceByDID(t *testing.T) {
	env := newTestEnv(t)

	t.Run("no_conference_no_template", func(t *testing.T) {
		_, err := env.orch.FetchConferenceByDID("+9999")
		if !errors.Is(err, ErrConferenceNotFound) {
			t.Fatalf("expected ErrConferenceNotFound, got %v", err)
		}
	})

	env.addTemplate(t, "sales", "+2*")

	conf, err := env.orch.FetchConferenceByDID("+2001")
	if err != nil {
		t.Fatalf("FetchConferenceByDID: %v", err)
	}
	if conf.DID() != "+2001" {
		t.Errorf("DID = %q, want +2001", conf.DID())
	}
	if !conf.AdHoc() {
		t.Error("provisioned conference should be ad-hoc")
	}

	t.Run("idempotent", func(t *testing.T) {
		again, err := env.orch.FetchConferenceByDID("+2001")
		if err != nil {
			t.Fatalf("second fetch: %v", err)
		}
		if again.UID() != conf.UID() {
			t.Errorf("second fetch returned %q, want %q", again.UID(), conf.UID())
		}
		if n := env.orch.ActiveConferenceCount(); n != 1 {
			t.Errorf("active conferences = %d, want 1", n)
		}
	})

	t.Run("existing_explicit_conference_wins", func(t *testing.T) {
		explicit, err := env.orch.CreateConference("room", "+3000", env.mixer.UID, 6, CompositionMosaic, VADNone, "p1", CodecLists{})
		if err != nil {
			t.Fatalf("CreateConference: %v", err)
		}
		got, err := env.orch.FetchConferenceByDID("+3000")
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if got.UID() != explicit.UID() {
			t.Errorf("fetch returned %q, want existing %q", got.UID(), explicit.UID())
		}
	})
}

func TestFetchConferenceByDID_concurrent(t *testing.T) {
	env := newTestEnv(t)
	env.factory.delay = 5 * time.Millisecond
	env.addTemplate(t, "sales", "+2*")

	const n = 8
	var wg sync.WaitGroup
	confs := make([]Conference, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conf, err := env.orch.FetchConferenceByDID("+2001")
			if err != nil {
				t.Errorf("fetch %d: %v", i, err)
				return
			}
			confs[i] = conf
		}(i)
	}
	wg.Wait()

	uid := confs[0].UID()
	for i, conf := range confs {
		if conf == nil {
			continue
		}
		if conf.UID() != uid {
			t.Errorf("fetch %d returned %q, want %q", i, conf.UID(), uid)
		}
	}
	if n := env.orch.ActiveConferenceCount(); n != 1 {
		t.Errorf("active conferences = %d, want 1", n)
	}
}

func TestRemoveMixer_cascades(t *testing.T) {
	env := newTestEnv(t)
	listener := &recordingListener{}
	env.orch.AddListener(listener)

	var uids []string
	for i := 0; i < 3; i++ {
		conf, err := env.orch.CreateConference(fmt.Sprintf("room%d", i), fmt.Sprintf("+%d", 1000+i),
			env.mixer.UID, 6, CompositionMosaic, VADNone, "p1", CodecLists{})
		if err != nil {
			t.Fatalf("CreateConference %d: %v", i, err)
		}
		uids = append(uids, conf.UID())
	}

	if err := env.orch.RemoveMixer(env.mixer.UID); err != nil {
		t.Fatalf("RemoveMixer: %v", err)
	}

	for _, uid := range uids {
		if _, err := env.orch.GetConference(uid); !errors.Is(err, ErrConferenceNotFound) {
			t.Errorf("conference %s still registered after mixer removal", uid)
		}
	}
	if _, ok := env.orch.mixers.Get(env.mixer.UID); ok {
		t.Error("mixer still registered")
	}
	if len(listener.destroyed) != 3 {
		t.Errorf("destroyed notifications = %d, want 3", len(listener.destroyed))
	}

	t.Run("unknown_mixer", func(t *testing.T) {
		if err := env.orch.RemoveMixer("missing"); !errors.Is(err, ErrMixerNotFound) {
			t.Errorf("expected ErrMixerNotFound, got %v", err)
		}
	})
}

func TestRemoveMixer_destroy_failures_do_not_block(t *testing.T) {
	env := newTestEnv(t)

	conf, err := env.orch.CreateConference("room", "+1000", env.mixer.UID, 6, CompositionMosaic, VADNone, "p1", CodecLists{})
	if err != nil {
		t.Fatalf("CreateConference: %v", err)
	}
	env.factory.allCreated()[0].destroyErr = errors.New("node gone")

	if err := env.orch.RemoveMixer(env.mixer.UID); err != nil {
		t.Fatalf("RemoveMixer: %v", err)
	}
	if _, ok := env.orch.mixers.Get(env.mixer.UID); ok {
		t.Error("mixer still registered after removal with failing destroy")
	}
	if _, err := env.orch.GetConference(conf.UID()); !errors.Is(err, ErrConferenceNotFound) {
		t.Error("conference still registered")
	}
}

func TestRelayOperations(t *testing.T) {
	env := newTestEnv(t)
	conf, err := env.orch.CreateConference("room", "+1000", env.mixer.UID, 6, CompositionMosaic, VADNone, "p1", CodecLists{})
	if err != nil {
		t.Fatalf("CreateConference: %v", err)
	}
	fc := env.factory.allCreated()[0]
	uid := conf.UID()

	if err := env.orch.SetProfile(uid, "p1"); err != nil {
		t.Errorf("SetProfile: %v", err)
	}
	if err := env.orch.SetProfile(uid, "nope"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("SetProfile unknown profile: %v", err)
	}
	if err := env.orch.SetCompositionType(uid, DefaultMosaic, CompositionOnePlusN, SizeVGA); err != nil {
		t.Errorf("SetCompositionType: %v", err)
	}
	if _, err := env.orch.CreateMosaic(uid, CompositionMosaic, SizeCIF); err != nil {
		t.Errorf("CreateMosaic: %v", err)
	}
	if err := env.orch.SetMosaicSlot(uid, DefaultMosaic, 2, 5); err != nil {
		t.Errorf("SetMosaicSlot: %v", err)
	}
	if err := env.orch.SetAudioMute(uid, 5, true); err != nil {
		t.Errorf("SetAudioMute: %v", err)
	}
	if err := env.orch.ChangeParticipantProfile(uid, 5, "p1"); err != nil {
		t.Errorf("ChangeParticipantProfile: %v", err)
	}

	fc.mu.Lock()
	calls := len(fc.calls)
	fc.mu.Unlock()
	if calls == 0 {
		t.Error("no calls relayed to conference")
	}

	t.Run("unknown_conference", func(t *testing.T) {
		if err := env.orch.SetAudioMute("missing", 1, true); !errors.Is(err, ErrConferenceNotFound) {
			t.Errorf("expected ErrConferenceNotFound, got %v", err)
		}
		if _, err := env.orch.CreateMosaic("missing", CompositionMosaic, SizeCIF); !errors.Is(err, ErrConferenceNotFound) {
			t.Errorf("expected ErrConferenceNotFound, got %v", err)
		}
	})
}

func TestListenerAddRemove(t *testing.T) {
	env := newTestEnv(t)
	l1 := &recordingListener{}
	l2 := &recordingListener{}
	env.orch.AddListener(l1)
	env.orch.AddListener(l2)
	env.orch.RemoveListener(l2)

	_, err := env.orch.CreateConference("room", "+1000", env.mixer.UID, 6, CompositionMosaic, VADNone, "p1", CodecLists{})
	if err != nil {
		t.Fatalf("CreateConference: %v", err)
	}
	if len(l1.created) != 1 {
		t.Errorf("l1 created notifications = %d, want 1", len(l1.created))
	}
	if len(l2.created) != 0 {
		t.Errorf("l2 created notifications = %d, want 0 after removal", len(l2.created))
	}
}
