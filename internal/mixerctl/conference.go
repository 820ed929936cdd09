package mixerctl

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"conference-orchestrator/internal/orchestrator"

	"github.com/google/uuid"
)

// New implements orchestrator.ConferenceFactory: it provisions the
// conference on the node and returns a handle for it. Called by the
// orchestrator without any registry lock held.
func (f *Factory) New(p orchestrator.ConferenceParams) (orchestrator.Conference, error) {
	c := &client{base: strings.TrimRight(p.Mixer.ControlURL, "/"), httpc: f.httpc}
	var resp struct {
		ConferenceID int `json:"conference_id"`
	}
	err := c.call(http.MethodPost, "/conferences", map[string]any{
		"tag":          p.UID,
		"name":         p.Name,
		"size":         p.Size,
		"composition":  int(p.CompType),
		"vad":          int(p.VAD),
		"video_size":   int(p.Profile.VideoSize),
		"bitrate":      p.Profile.VideoBitrate,
		"fps":          p.Profile.VideoFPS,
		"intra_period": p.Profile.IntraPeriod,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &conference{
		params:   p,
		remoteID: resp.ConferenceID,
		client:   c,
		log:      f.log,
	}, nil
}

// conference is the default Conference handle: a thin relay to the node's
// per-conference control API. Lifecycle events are fanned out to the
// listeners attached by the orchestrator.
type conference struct {
	params   orchestrator.ConferenceParams
	remoteID int
	client   *client
	log      *slog.Logger

	mu        sync.Mutex
	listeners []orchestrator.ConferenceListener
	destroyed bool
}

func (c *conference) UID() string      { return c.params.UID }
func (c *conference) Name() string     { return c.params.Name }
func (c *conference) DID() string      { return c.params.DID }
func (c *conference) MixerUID() string { return c.params.Mixer.UID }
func (c *conference) AdHoc() bool      { return c.params.AdHoc }

func (c *conference) path(suffix string) string {
	return fmt.Sprintf("/conferences/%d%s", c.remoteID, suffix)
}

// Init starts the conference on the node and notifies listeners.
func (c *conference) Init() error {
	if err := c.client.call(http.MethodPost, c.path("/init"), nil, nil); err != nil {
		return err
	}
	for _, l := range c.snapshotListeners() {
		l.OnConferenceInited(c)
	}
	return nil
}

// Destroy tears the conference down on the node. The ended callback fires
// even when the remote call fails, so local bookkeeping always converges;
// repeated calls are no-ops.
func (c *conference) Destroy() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true
	c.mu.Unlock()

	err := c.client.call(http.MethodDelete, c.path(""), nil, nil)
	if err != nil {
		c.log.Error("remote conference delete failed", "conference", c.UID(), "error", err)
	}
	for _, l := range c.snapshotListeners() {
		l.OnConferenceEnded(c)
	}
	return err
}

func (c *conference) AddListener(l orchestrator.ConferenceListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *conference) snapshotListeners() []orchestrator.ConferenceListener {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]orchestrator.ConferenceListener, len(c.listeners))
	copy(out, c.listeners)
	return out
}

func (c *conference) SetProfile(p orchestrator.Profile) error {
	return c.client.call(http.MethodPut, c.path("/profile"), map[string]int{
		"video_size":   int(p.VideoSize),
		"bitrate":      p.VideoBitrate,
		"fps":          p.VideoFPS,
		"intra_period": p.IntraPeriod,
	}, nil)
}

func (c *conference) SetCompositionType(mosaicID int, comp orchestrator.CompositionType, size orchestrator.VideoSize) error {
	return c.client.call(http.MethodPut, c.path(fmt.Sprintf("/mosaics/%d/composition", mosaicID)), map[string]int{
		"composition": int(comp),
		"size":        int(size),
	}, nil)
}

func (c *conference) SetCodecs(kind orchestrator.MediaKind, codecs []string) error {
	return c.client.call(http.MethodPut, c.path("/codecs"), map[string]any{
		"kind":   string(kind),
		"codecs": codecs,
	}, nil)
}

// AddViewerToken mints a conference viewer token, registers it with the node
// and builds the playback URL from the node's public address.
func (c *conference) AddViewerToken() (orchestrator.RTMPURL, error) {
	token := uuid.NewString()
	err := c.client.call(http.MethodPost, c.path("/tokens"), map[string]string{"token": token}, nil)
	if err != nil {
		c.log.Error("register conference token failed", "conference", c.UID(), "error", err)
	}
	return orchestrator.RTMPURL{
		URL: "rtmp://" + c.params.Mixer.PublicIP + "/mcu/watcher/" + token,
		Tag: c.UID(),
	}, nil
}

func (c *conference) CreateParticipant(ptype orchestrator.ParticipantType, name string, mosaicID, sidebarID int) (orchestrator.Participant, error) {
	var resp struct {
		ParticipantID int `json:"participant_id"`
	}
	err := c.client.call(http.MethodPost, c.path("/participants"), map[string]any{
		"type":    int(ptype),
		"name":    name,
		"mosaic":  mosaicID,
		"sidebar": sidebarID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	part := &participant{conf: c, id: resp.ParticipantID, name: name}
	for _, l := range c.snapshotListeners() {
		l.OnParticipantCreated(c.UID(), part)
	}
	return part, nil
}

func (c *conference) CallParticipant(dest, proxy string) (orchestrator.Participant, error) {
	var resp struct {
		ParticipantID int `json:"participant_id"`
	}
	err := c.client.call(http.MethodPost, c.path("/participants/call"), map[string]string{
		"dest":  dest,
		"proxy": proxy,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &participant{conf: c, id: resp.ParticipantID, name: dest}, nil
}

func (c *conference) AcceptParticipant(partID, mosaicID, sidebarID int) error {
	return c.client.call(http.MethodPost, c.path(fmt.Sprintf("/participants/%d/accept", partID)), map[string]int{
		"mosaic":  mosaicID,
		"sidebar": sidebarID,
	}, nil)
}

func (c *conference) RejectParticipant(partID int) error {
	return c.client.call(http.MethodPost, c.path(fmt.Sprintf("/participants/%d/reject", partID)), nil, nil)
}

func (c *conference) RemoveParticipant(partID int) error {
	err := c.client.call(http.MethodDelete, c.path(fmt.Sprintf("/participants/%d", partID)), nil, nil)
	if err == nil {
		for _, l := range c.snapshotListeners() {
			l.OnParticipantDestroyed(c.UID(), partID)
		}
	}
	return err
}

func (c *conference) SetParticipantAudioMute(partID int, muted bool) error {
	return c.client.call(http.MethodPut, c.path(fmt.Sprintf("/participants/%d/audio-mute", partID)), map[string]bool{"muted": muted}, nil)
}

func (c *conference) SetParticipantVideoMute(partID int, muted bool) error {
	return c.client.call(http.MethodPut, c.path(fmt.Sprintf("/participants/%d/video-mute", partID)), map[string]bool{"muted": muted}, nil)
}

func (c *conference) ChangeParticipantProfile(partID int, p orchestrator.Profile) error {
	return c.client.call(http.MethodPut, c.path(fmt.Sprintf("/participants/%d/profile", partID)), map[string]int{
		"video_size":   int(p.VideoSize),
		"bitrate":      p.VideoBitrate,
		"fps":          p.VideoFPS,
		"intra_period": p.IntraPeriod,
	}, nil)
}

func (c *conference) CreateMosaic(comp orchestrator.CompositionType, size orchestrator.VideoSize) (int, error) {
	var resp struct {
		MosaicID int `json:"mosaic_id"`
	}
	err := c.client.call(http.MethodPost, c.path("/mosaics"), map[string]int{
		"composition": int(comp),
		"size":        int(size),
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.MosaicID, nil
}

func (c *conference) DeleteMosaic(mosaicID int) error {
	return c.client.call(http.MethodDelete, c.path(fmt.Sprintf("/mosaics/%d", mosaicID)), nil, nil)
}

func (c *conference) SetMosaicOverlayImage(mosaicID int, filename string) error {
	return c.client.call(http.MethodPut, c.path(fmt.Sprintf("/mosaics/%d/overlay", mosaicID)), map[string]string{"filename": filename}, nil)
}

func (c *conference) ResetMosaicOverlay(mosaicID int) error {
	return c.client.call(http.MethodDelete, c.path(fmt.Sprintf("/mosaics/%d/overlay", mosaicID)), nil, nil)
}

func (c *conference) AddMosaicParticipant(mosaicID, partID int) error {
	return c.client.call(http.MethodPost, c.path(fmt.Sprintf("/mosaics/%d/participants", mosaicID)), map[string]int{"participant": partID}, nil)
}

func (c *conference) RemoveMosaicParticipant(mosaicID, partID int) error {
	return c.client.call(http.MethodDelete, c.path(fmt.Sprintf("/mosaics/%d/participants/%d", mosaicID, partID)), nil, nil)
}

func (c *conference) SetMosaicSlot(mosaicID, slot, partID int) error {
	return c.client.call(http.MethodPut, c.path(fmt.Sprintf("/mosaics/%d/slots/%d", mosaicID, slot)), map[string]int{"participant": partID}, nil)
}

func (c *conference) RequestFPU(partID int) error {
	return c.client.call(http.MethodPost, c.path(fmt.Sprintf("/participants/%d/fpu", partID)), nil, nil)
}

// participant is the default Participant handle.
type participant struct {
	conf *conference
	id   int
	name string
}

func (p *participant) ID() int      { return p.id }
func (p *participant) Name() string { return p.name }

// HandleInvite completes the inbound call: the participant is accepted into
// the default mosaic and the caller receives a success final response.
func (p *participant) HandleInvite(req *orchestrator.InviteRequest, sink orchestrator.ResponseSink) error {
	if err := p.conf.AcceptParticipant(p.id, orchestrator.DefaultMosaic, orchestrator.DefaultSidebar); err != nil {
		if serr := sink.Final(500, "Server Internal Error"); serr != nil {
			p.conf.log.Warn("final response failed", "participant", p.id, "error", serr)
		}
		return err
	}
	return sink.Final(200, "OK")
}
