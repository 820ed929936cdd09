package orchestrator

// ParticipantType distinguishes how a participant joined.
type ParticipantType int

const (
	ParticipantSIP ParticipantType = iota
	ParticipantWeb
)

// Conference is the per-conference collaborator. Construction (via
// ConferenceFactory) performs the remote provisioning call; everything else
// here delegates to the node hosting the conference. The orchestrator adds no
// logic beyond id resolution and error translation.
type Conference interface {
	UID() string
	Name() string
	DID() string
	MixerUID() string
	AdHoc() bool

	// Init starts the conference-internal machinery. The orchestrator calls
	// it exactly once, after the created notification has been delivered.
	Init() error
	// Destroy tears the conference down. The conference signals completion
	// through OnConferenceEnded on its listeners.
	Destroy() error
	AddListener(l ConferenceListener)

	SetProfile(p Profile) error
	SetCompositionType(mosaicID int, comp CompositionType, size VideoSize) error
	SetCodecs(kind MediaKind, codecs []string) error
	AddViewerToken() (RTMPURL, error)

	CreateParticipant(ptype ParticipantType, name string, mosaicID, sidebarID int) (Participant, error)
	CallParticipant(dest, proxy string) (Participant, error)
	AcceptParticipant(partID, mosaicID, sidebarID int) error
	RejectParticipant(partID int) error
	RemoveParticipant(partID int) error
	SetParticipantAudioMute(partID int, muted bool) error
	SetParticipantVideoMute(partID int, muted bool) error
	ChangeParticipantProfile(partID int, p Profile) error

	CreateMosaic(comp CompositionType, size VideoSize) (int, error)
	DeleteMosaic(mosaicID int) error
	SetMosaicOverlayImage(mosaicID int, filename string) error
	ResetMosaicOverlay(mosaicID int) error
	AddMosaicParticipant(mosaicID, partID int) error
	RemoveMosaicParticipant(mosaicID, partID int) error
	SetMosaicSlot(mosaicID, slot, partID int) error

	RequestFPU(partID int) error
}

// Participant is a conference member created for an inbound call. The
// orchestrator hands it the original invite for protocol completion.
type Participant interface {
	ID() int
	Name() string
	HandleInvite(req *InviteRequest, sink ResponseSink) error
}

// ConferenceListener receives lifecycle callbacks from a Conference. The
// conference must not invoke these while the caller of the triggering
// operation still holds a registry lock.
type ConferenceListener interface {
	OnConferenceInited(conf Conference)
	OnConferenceEnded(conf Conference)
	OnParticipantCreated(confID string, part Participant)
	OnParticipantStateChanged(confID string, partID int, state string)
	OnParticipantDestroyed(confID string, partID int)
}

// Listener receives orchestrator-level conference lifecycle notifications.
// Delivery is synchronous on the thread performing the triggering operation:
// the created notification fires after registry insertion and before
// Conference.Init, so a listener can attach conference-scoped observers
// before any conference-internal event is emitted.
type Listener interface {
	OnConferenceCreated(conf Conference)
	OnConferenceDestroyed(confID string)
}

// ConferenceParams are the resolved inputs to conference provisioning. The
// orchestrator assigns UID; Profile is captured by value.
type ConferenceParams struct {
	UID      string
	Name     string
	DID      string
	Mixer    *MixerNode
	Size     int
	CompType CompositionType
	VAD      VADMode
	Profile  Profile
	AdHoc    bool
}

// ConferenceFactory constructs the external Conference, performing the remote
// provisioning call against params.Mixer. Called without any registry lock
// held.
type ConferenceFactory interface {
	New(params ConferenceParams) (Conference, error)
}

// BroadcastControl is the per-mixer broadcast-control capability.
type BroadcastControl interface {
	CreateBroadcast(name, tag string) (sessionID int, err error)
	PublishBroadcast(sessionID int, tag string) error
	UnpublishBroadcast(sessionID int) error
	DeleteBroadcast(sessionID int) error
	AddBroadcastToken(sessionID int, token string) error
}

// ControlClientFactory yields control-plane clients for a mixer node.
type ControlClientFactory interface {
	Broadcaster(node *MixerNode) (BroadcastControl, error)
}
