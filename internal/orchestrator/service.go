package orchestrator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Orchestrator is the top-level coordinator: conference create/destroy,
// DID-based lookup-or-provision, command relay to the per-conference
// collaborator, broadcast lifecycle and listener fan-out.
type Orchestrator struct {
	log      *slog.Logger
	mixers   *MixerRegistry
	profiles *ProfileCatalog
	routes   *TemplateCatalog
	factory  ConferenceFactory
	clients  ControlClientFactory

	confs  *conferenceRegistry
	bcasts *broadcastRegistry

	lmu       sync.Mutex
	listeners map[Listener]struct{}
}

// New returns an Orchestrator wired to the given registries and capability
// factories.
func New(
	log *slog.Logger,
	mixers *MixerRegistry,
	profiles *ProfileCatalog,
	routes *TemplateCatalog,
	factory ConferenceFactory,
	clients ControlClientFactory,
) *Orchestrator {
	return &Orchestrator{
		log:       log,
		mixers:    mixers,
		profiles:  profiles,
		routes:    routes,
		factory:   factory,
		clients:   clients,
		confs:     newConferenceRegistry(),
		bcasts:    newBroadcastRegistry(),
		listeners: make(map[Listener]struct{}),
	}
}

// CreateConference provisions a conference on the given mixer. The DID
// uniqueness check runs twice: once before the remote provisioning call and
// once at registration, because the call runs without the registry lock so
// other orchestrator operations are not blocked on network latency. Losing
// the second check destroys the freshly provisioned conference.
func (o *Orchestrator) CreateConference(
	name, did, mixerID string,
	size int,
	comp CompositionType,
	vad VADMode,
	profileID string,
	codecs CodecLists,
) (Conference, error) {
	if did != "" {
		if _, ok := o.confs.lookupDID(did); ok {
			o.log.Error("conference DID already present", "did", did)
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDID, did)
		}
	}
	mixer, ok := o.mixers.Get(mixerID)
	if !ok {
		o.log.Error("mixer does not exist", "mixer", mixerID)
		return nil, fmt.Errorf("%w: %s", ErrMixerNotFound, mixerID)
	}
	profile, ok := o.profiles.Get(profileID)
	if !ok {
		o.log.Error("profile does not exist", "profile", profileID)
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
	}

	conf, err := o.provision(ConferenceParams{
		UID:      uuid.NewString(),
		Name:     name,
		DID:      did,
		Mixer:    mixer,
		Size:     size,
		CompType: comp,
		VAD:      vad,
		Profile:  profile,
		AdHoc:    false,
	}, codecs)
	if err != nil {
		return nil, err
	}

	if _, registered := o.commit(conf); !registered {
		// A concurrent request created the same DID while the remote call
		// was in flight.
		o.log.Error("conference DID already present, destroying conference", "did", did, "conference", conf.UID())
		if derr := conf.Destroy(); derr != nil {
			o.log.Error("rollback destroy failed", "conference", conf.UID(), "error", derr)
		}
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDID, did)
	}

	return o.finish(conf)
}

// CreateConferenceAdHoc provisions a conference from a matched template. A
// concurrent fetch for the same DID may win the registration race; in that
// case the fresh conference is destroyed and the winner returned, keeping
// FetchConferenceByDID idempotent.
func (o *Orchestrator) CreateConferenceAdHoc(did string, tmpl *ConferenceTemplate) (Conference, error) {
	mixer, ok := o.mixers.Get(tmpl.MixerUID)
	if !ok {
		o.log.Error("template references unknown mixer", "template", tmpl.Name, "mixer", tmpl.MixerUID)
		return nil, fmt.Errorf("%w: %s", ErrMixerNotFound, tmpl.MixerUID)
	}
	profile, ok := o.profiles.Get(tmpl.ProfileUID)
	if !ok {
		o.log.Error("template references unknown profile", "template", tmpl.Name, "profile", tmpl.ProfileUID)
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, tmpl.ProfileUID)
	}

	conf, err := o.provision(ConferenceParams{
		UID:      uuid.NewString(),
		Name:     tmpl.Name,
		DID:      did,
		Mixer:    mixer,
		Size:     tmpl.Size,
		CompType: tmpl.CompType,
		VAD:      tmpl.VAD,
		Profile:  profile,
		AdHoc:    true,
	}, CodecLists{Audio: tmpl.AudioCodecs, Video: tmpl.VideoCodecs, Text: tmpl.TextCodecs})
	if err != nil {
		return nil, err
	}

	if winner, registered := o.commit(conf); !registered {
		o.log.Info("concurrent ad-hoc creation lost, reusing winner", "did", did, "conference", winner.UID())
		if derr := conf.Destroy(); derr != nil {
			o.log.Error("rollback destroy failed", "conference", conf.UID(), "error", derr)
		}
		return winner, nil
	}

	return o.finish(conf)
}

// provision performs the remote construction and applies codec overrides.
// Runs without any registry lock held. A codec failure after construction
// unwinds the remote state.
func (o *Orchestrator) provision(params ConferenceParams, codecs CodecLists) (Conference, error) {
	conf, err := o.factory.New(params)
	if err != nil {
		o.log.Error("failed to communicate with media mixer",
			"mixer", params.Mixer.UID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRemoteProvisioning, err)
	}
	for kind, list := range map[MediaKind][]string{
		MediaAudio: codecs.Audio,
		MediaVideo: codecs.Video,
		MediaText:  codecs.Text,
	} {
		if len(list) == 0 {
			continue
		}
		if err := conf.SetCodecs(kind, list); err != nil {
			o.log.Error("codec override failed, destroying conference",
				"conference", conf.UID(), "kind", string(kind), "error", err)
			if derr := conf.Destroy(); derr != nil {
				o.log.Error("rollback destroy failed", "conference", conf.UID(), "error", derr)
			}
			return nil, fmt.Errorf("%w: %v", ErrRemoteProvisioning, err)
		}
	}
	return conf, nil
}

// commit attaches the orchestrator as conference listener and registers the
// conference under the registry lock, re-validating DID uniqueness.
func (o *Orchestrator) commit(conf Conference) (Conference, bool) {
	conf.AddListener(o)
	return o.confs.register(conf)
}

// finish fires the created notification and then inits the conference, in
// that order, outside any lock. An init failure rolls the conference back
// through the normal destroy path so the destroyed notification still fires
// exactly once.
func (o *Orchestrator) finish(conf Conference) (Conference, error) {
	o.log.Info("created conference", "conference", conf.UID(), "did", conf.DID(), "ad_hoc", conf.AdHoc())
	o.fireCreated(conf)
	if err := conf.Init(); err != nil {
		o.log.Error("conference init failed, destroying", "conference", conf.UID(), "error", err)
		if derr := conf.Destroy(); derr != nil {
			o.log.Error("rollback destroy failed", "conference", conf.UID(), "error", derr)
		}
		return nil, fmt.Errorf("%w: %v", ErrRemoteProvisioning, err)
	}
	return conf, nil
}

// FetchConferenceByDID returns the active conference holding did, or
// provisions one from the first matching template. Together with the
// creation protocol's double check this is what guarantees at most one
// active conference per DID.
func (o *Orchestrator) FetchConferenceByDID(did string) (Conference, error) {
	if conf, ok := o.confs.lookupDID(did); ok {
		return conf, nil
	}
	tmpl, ok := o.routes.MatchFirst(did)
	if !ok {
		return nil, fmt.Errorf("%w: no conference or template for DID %s", ErrConferenceNotFound, did)
	}
	return o.CreateConferenceAdHoc(did, tmpl)
}

// RemoveConference asks the conference to destroy itself. Registry removal
// and the destroyed notification happen via the conference-ended callback,
// not here, so destroy failures are logged and the removal still reports
// success.
func (o *Orchestrator) RemoveConference(confID string) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	if derr := conf.Destroy(); derr != nil {
		o.log.Error("conference destroy failed", "conference", confID, "error", derr)
	}
	o.log.Info("destroyed conference", "conference", confID)
	return nil
}

// RemoveMixer destroys every conference hosted on the mixer (best effort,
// failures logged) and then removes the node from the registry. The destroy
// loop runs before the mixer registry lock is taken so a destroy path can
// never deadlock against it.
func (o *Orchestrator) RemoveMixer(uid string) error {
	if _, ok := o.mixers.Get(uid); !ok {
		return fmt.Errorf("%w: %s", ErrMixerNotFound, uid)
	}
	for _, conf := range o.confs.list() {
		if conf.MixerUID() != uid {
			continue
		}
		if err := conf.Destroy(); err != nil {
			o.log.Error("destroy during mixer removal failed", "conference", conf.UID(), "mixer", uid, "error", err)
		}
	}
	return o.mixers.Remove(uid)
}

// GetConference returns the active conference with the given uid.
func (o *Orchestrator) GetConference(confID string) (Conference, error) {
	return o.conference(confID)
}

// Conferences returns a snapshot of all active conferences.
func (o *Orchestrator) Conferences() []Conference {
	return o.confs.list()
}

// ActiveConferenceCount returns the number of active conferences, for the
// metrics gauge.
func (o *Orchestrator) ActiveConferenceCount() int {
	return o.confs.count()
}

func (o *Orchestrator) conference(confID string) (Conference, error) {
	conf, ok := o.confs.get(confID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConferenceNotFound, confID)
	}
	return conf, nil
}

// SetProfile switches the conference to another registered profile.
func (o *Orchestrator) SetProfile(confID, profileID string) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	profile, ok := o.profiles.Get(profileID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
	}
	return conf.SetProfile(profile)
}

// SetCompositionType changes the layout algorithm of one mosaic.
func (o *Orchestrator) SetCompositionType(confID string, mosaicID int, comp CompositionType, size VideoSize) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.SetCompositionType(mosaicID, comp, size)
}

// SetCodecs replaces the conference's supported codec set for one media kind.
func (o *Orchestrator) SetCodecs(confID string, kind MediaKind, codecs []string) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.SetCodecs(kind, codecs)
}

// AddConferenceToken issues a viewer-access grant for the conference itself.
func (o *Orchestrator) AddConferenceToken(confID string) (RTMPURL, error) {
	conf, err := o.conference(confID)
	if err != nil {
		return RTMPURL{}, err
	}
	return conf.AddViewerToken()
}

// CallParticipant dials out to dest and adds the result to the conference.
func (o *Orchestrator) CallParticipant(confID, dest, proxy string) (Participant, error) {
	conf, err := o.conference(confID)
	if err != nil {
		return nil, err
	}
	return conf.CallParticipant(dest, proxy)
}

// AcceptParticipant admits a pending participant into a mosaic and sidebar.
func (o *Orchestrator) AcceptParticipant(confID string, partID, mosaicID, sidebarID int) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.AcceptParticipant(partID, mosaicID, sidebarID)
}

// RejectParticipant refuses a pending participant.
func (o *Orchestrator) RejectParticipant(confID string, partID int) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.RejectParticipant(partID)
}

// RemoveParticipant drops a participant from the conference.
func (o *Orchestrator) RemoveParticipant(confID string, partID int) error {
	o.log.Debug("removing participant", "conference", confID, "participant", partID)
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.RemoveParticipant(partID)
}

// SetAudioMute toggles a participant's audio.
func (o *Orchestrator) SetAudioMute(confID string, partID int, muted bool) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.SetParticipantAudioMute(partID, muted)
}

// SetVideoMute toggles a participant's video.
func (o *Orchestrator) SetVideoMute(confID string, partID int, muted bool) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.SetParticipantVideoMute(partID, muted)
}

// ChangeParticipantProfile switches one participant to another registered
// profile.
func (o *Orchestrator) ChangeParticipantProfile(confID string, partID int, profileID string) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	profile, ok := o.profiles.Get(profileID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
	}
	return conf.ChangeParticipantProfile(partID, profile)
}

// CreateMosaic adds a mosaic to the conference and returns its id.
func (o *Orchestrator) CreateMosaic(confID string, comp CompositionType, size VideoSize) (int, error) {
	conf, err := o.conference(confID)
	if err != nil {
		return 0, err
	}
	return conf.CreateMosaic(comp, size)
}

// DeleteMosaic removes a mosaic from the conference.
func (o *Orchestrator) DeleteMosaic(confID string, mosaicID int) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.DeleteMosaic(mosaicID)
}

// SetMosaicOverlayImage draws an overlay image on a mosaic.
func (o *Orchestrator) SetMosaicOverlayImage(confID string, mosaicID int, filename string) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.SetMosaicOverlayImage(mosaicID, filename)
}

// ResetMosaicOverlay removes a mosaic's overlay image.
func (o *Orchestrator) ResetMosaicOverlay(confID string, mosaicID int) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.ResetMosaicOverlay(mosaicID)
}

// AddMosaicParticipant pins a participant into a mosaic.
func (o *Orchestrator) AddMosaicParticipant(confID string, mosaicID, partID int) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.AddMosaicParticipant(mosaicID, partID)
}

// RemoveMosaicParticipant unpins a participant from a mosaic.
func (o *Orchestrator) RemoveMosaicParticipant(confID string, mosaicID, partID int) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.RemoveMosaicParticipant(mosaicID, partID)
}

// SetMosaicSlot assigns a participant to a fixed slot of a mosaic.
func (o *Orchestrator) SetMosaicSlot(confID string, mosaicID, slot, partID int) error {
	conf, err := o.conference(confID)
	if err != nil {
		return err
	}
	return conf.SetMosaicSlot(mosaicID, slot, partID)
}

// OnParticipantRequestFPU relays a fast-picture-update request coming back
// from a mixer to the conference hosting the participant. Unknown ids are
// logged, not propagated: the node may race against conference teardown.
func (o *Orchestrator) OnParticipantRequestFPU(confID string, partID int) {
	conf, err := o.conference(confID)
	if err != nil {
		o.log.Warn("FPU request for unknown conference", "conference", confID, "participant", partID)
		return
	}
	if err := conf.RequestFPU(partID); err != nil {
		o.log.Warn("FPU request failed", "conference", confID, "participant", partID, "error", err)
	}
}

// AddListener subscribes to conference lifecycle notifications.
func (o *Orchestrator) AddListener(l Listener) {
	o.lmu.Lock()
	defer o.lmu.Unlock()
	o.listeners[l] = struct{}{}
}

// RemoveListener unsubscribes a listener.
func (o *Orchestrator) RemoveListener(l Listener) {
	o.lmu.Lock()
	defer o.lmu.Unlock()
	delete(o.listeners, l)
}

func (o *Orchestrator) snapshotListeners() []Listener {
	o.lmu.Lock()
	defer o.lmu.Unlock()
	if len(o.listeners) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(o.listeners))
	for l := range o.listeners {
		out = append(out, l)
	}
	return out
}

// fireCreated delivers synchronously on the calling goroutine, so a listener
// can attach conference-scoped observers before Init runs.
func (o *Orchestrator) fireCreated(conf Conference) {
	for _, l := range o.snapshotListeners() {
		l.OnConferenceCreated(conf)
	}
}

func (o *Orchestrator) fireDestroyed(confID string) {
	for _, l := range o.snapshotListeners() {
		l.OnConferenceDestroyed(confID)
	}
}

// OnConferenceEnded implements ConferenceListener. This is the only path
// that removes a conference from the registry, which keeps the destroyed
// notification exactly-once.
func (o *Orchestrator) OnConferenceEnded(conf Conference) {
	confID := conf.UID()
	if _, ok := o.confs.remove(confID); !ok {
		return
	}
	o.fireDestroyed(confID)
}

// OnConferenceInited implements ConferenceListener.
func (o *Orchestrator) OnConferenceInited(conf Conference) {
	o.log.Debug("conference inited", "conference", conf.UID())
}

// OnParticipantCreated implements ConferenceListener.
func (o *Orchestrator) OnParticipantCreated(confID string, part Participant) {
	o.log.Debug("participant created", "conference", confID, "participant", part.Name())
}

// OnParticipantStateChanged implements ConferenceListener.
func (o *Orchestrator) OnParticipantStateChanged(confID string, partID int, state string) {
	o.log.Debug("participant state changed", "conference", confID, "participant", partID, "state", state)
}

// OnParticipantDestroyed implements ConferenceListener.
func (o *Orchestrator) OnParticipantDestroyed(confID string, partID int) {
	o.log.Debug("participant destroyed", "conference", confID, "participant", partID)
}
