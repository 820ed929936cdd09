package orchestrator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"conference-orchestrator/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the admin operations surface over HTTP using go-chi. Each
// route maps 1:1 to an Orchestrator operation.
type Handler struct {
	orch    *Orchestrator
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler for the given Orchestrator. Metrics may be
// nil to disable metric recording (e.g. in tests).
func NewHandler(orch *Orchestrator, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{orch: orch, log: log, metrics: m}
}

// Routes returns the admin API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/mixers", func(r chi.Router) {
		r.Post("/", h.AddMixer)
		r.Get("/", h.ListMixers)
		r.Delete("/{uid}", h.RemoveMixer)
	})
	r.Route("/profiles", func(r chi.Router) {
		r.Post("/", h.AddProfile)
		r.Get("/", h.ListProfiles)
		r.Delete("/{uid}", h.RemoveProfile)
	})
	r.Route("/templates", func(r chi.Router) {
		r.Post("/", h.AddTemplate)
		r.Get("/", h.ListTemplates)
		r.Delete("/{name}", h.RemoveTemplate)
	})
	r.Route("/conferences", func(r chi.Router) {
		r.Post("/", h.CreateConference)
		r.Get("/", h.ListConferences)
		r.Route("/{uid}", func(r chi.Router) {
			r.Delete("/", h.RemoveConference)
			r.Post("/token", h.AddConferenceToken)
			r.Put("/profile", h.SetProfile)
			r.Put("/composition", h.SetCompositionType)
			r.Put("/codecs", h.SetCodecs)
			r.Route("/mosaics", func(r chi.Router) {
				r.Post("/", h.CreateMosaic)
				r.Route("/{mosaicID}", func(r chi.Router) {
					r.Delete("/", h.DeleteMosaic)
					r.Put("/overlay", h.SetMosaicOverlay)
					r.Delete("/overlay", h.ResetMosaicOverlay)
					r.Post("/participants", h.AddMosaicParticipant)
					r.Delete("/participants/{partID}", h.RemoveMosaicParticipant)
					r.Put("/slots/{slot}", h.SetMosaicSlot)
				})
			})
			r.Route("/participants", func(r chi.Router) {
				r.Post("/", h.CallParticipant)
				r.Route("/{partID}", func(r chi.Router) {
					r.Post("/accept", h.AcceptParticipant)
					r.Post("/reject", h.RejectParticipant)
					r.Delete("/", h.RemoveParticipant)
					r.Put("/audio-mute", h.SetAudioMute)
					r.Put("/video-mute", h.SetVideoMute)
					r.Put("/profile", h.ChangeParticipantProfile)
				})
			})
		})
	})
	r.Route("/broadcasts", func(r chi.Router) {
		r.Post("/", h.CreateBroadcast)
		r.Get("/", h.ListBroadcasts)
		r.Delete("/{uid}", h.RemoveBroadcast)
		r.Post("/{uid}/token", h.AddBroadcastToken)
	})

	return r
}

// writeError maps domain error kinds onto HTTP status codes. No error here
// is fatal; every recoverable kind becomes an explicit failed response.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, ErrConferenceNotFound),
		errors.Is(err, ErrParticipantNotFound),
		errors.Is(err, ErrMixerNotFound),
		errors.Is(err, ErrProfileNotFound),
		errors.Is(err, ErrTemplateNotFound),
		errors.Is(err, ErrBroadcastNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrDuplicateDID):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidEndpoint), errors.Is(err, ErrInvalidConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, ErrRemoteProvisioning):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

type mixerRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	IP       string `json:"ip"`
	PublicIP string `json:"public_ip"`
	LocalNet string `json:"local_net"`
}

type mixerResponse struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	IP       string `json:"ip"`
	PublicIP string `json:"public_ip"`
	LocalNet string `json:"local_net,omitempty"`
}

func mixerToResponse(n *MixerNode) mixerResponse {
	return mixerResponse{UID: n.UID, Name: n.Name, URL: n.ControlURL, IP: n.IP, PublicIP: n.PublicIP, LocalNet: n.LocalNet}
}

// AddMixer handles POST /mixers.
func (h *Handler) AddMixer(w http.ResponseWriter, r *http.Request) {
	var req mixerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	node, err := h.orch.mixers.Add(req.Name, req.URL, req.IP, req.PublicIP, req.LocalNet)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mixerToResponse(node))
}

// ListMixers handles GET /mixers.
func (h *Handler) ListMixers(w http.ResponseWriter, r *http.Request) {
	nodes := h.orch.mixers.List()
	out := make([]mixerResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, mixerToResponse(n))
	}
	writeJSON(w, http.StatusOK, out)
}

// RemoveMixer handles DELETE /mixers/{uid}. Conferences hosted on the mixer
// are destroyed first.
func (h *Handler) RemoveMixer(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.RemoveMixer(chi.URLParam(r, "uid")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type profileRequest struct {
	UID          string `json:"uid"`
	Name         string `json:"name"`
	VideoSize    int    `json:"video_size"`
	VideoBitrate int    `json:"video_bitrate"`
	VideoFPS     int    `json:"video_fps"`
	IntraPeriod  int    `json:"intra_period"`
}

// AddProfile handles POST /profiles.
func (h *Handler) AddProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.orch.profiles.Add(Profile{
		UID:          req.UID,
		Name:         req.Name,
		VideoSize:    VideoSize(req.VideoSize),
		VideoBitrate: req.VideoBitrate,
		VideoFPS:     req.VideoFPS,
		IntraPeriod:  req.IntraPeriod,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListProfiles handles GET /profiles.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.profiles.List())
}

// RemoveProfile handles DELETE /profiles/{uid}.
func (h *Handler) RemoveProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.profiles.Remove(chi.URLParam(r, "uid")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type templateRequest struct {
	Name        string `json:"name"`
	DID         string `json:"did"`
	Mixer       string `json:"mixer"`
	Profile     string `json:"profile"`
	Size        int    `json:"size"`
	Composition int    `json:"composition"`
	VAD         int    `json:"vad"`
	AudioCodecs string `json:"audio_codecs"`
	VideoCodecs string `json:"video_codecs"`
	TextCodecs  string `json:"text_codecs"`
}

// AddTemplate handles POST /templates.
func (h *Handler) AddTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t := &ConferenceTemplate{
		Name:        req.Name,
		Pattern:     req.DID,
		MixerUID:    req.Mixer,
		ProfileUID:  req.Profile,
		Size:        req.Size,
		CompType:    CompositionType(req.Composition),
		VAD:         VADMode(req.VAD),
		AudioCodecs: ParseCodecList(req.AudioCodecs),
		VideoCodecs: ParseCodecList(req.VideoCodecs),
		TextCodecs:  ParseCodecList(req.TextCodecs),
	}
	if err := h.orch.routes.Add(t); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListTemplates handles GET /templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	tmpls := h.orch.routes.List()
	out := make([]templateRequest, 0, len(tmpls))
	for _, t := range tmpls {
		out = append(out, templateRequest{
			Name:        t.Name,
			DID:         t.Pattern,
			Mixer:       t.MixerUID,
			Profile:     t.ProfileUID,
			Size:        t.Size,
			Composition: int(t.CompType),
			VAD:         int(t.VAD),
			AudioCodecs: joinCodecs(t.AudioCodecs),
			VideoCodecs: joinCodecs(t.VideoCodecs),
			TextCodecs:  joinCodecs(t.TextCodecs),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// RemoveTemplate handles DELETE /templates/{name}.
func (h *Handler) RemoveTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.routes.Remove(chi.URLParam(r, "name")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type conferenceRequest struct {
	Name        string `json:"name"`
	DID         string `json:"did"`
	Mixer       string `json:"mixer"`
	Size        int    `json:"size"`
	Composition int    `json:"composition"`
	VAD         int    `json:"vad"`
	Profile     string `json:"profile"`
	AudioCodecs string `json:"audio_codecs"`
	VideoCodecs string `json:"video_codecs"`
	TextCodecs  string `json:"text_codecs"`
}

type conferenceResponse struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	DID   string `json:"did,omitempty"`
	Mixer string `json:"mixer"`
	AdHoc bool   `json:"ad_hoc"`
}

func conferenceToResponse(c Conference) conferenceResponse {
	return conferenceResponse{UID: c.UID(), Name: c.Name(), DID: c.DID(), Mixer: c.MixerUID(), AdHoc: c.AdHoc()}
}

// CreateConference handles POST /conferences.
func (h *Handler) CreateConference(w http.ResponseWriter, r *http.Request) {
	var req conferenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	conf, err := h.orch.CreateConference(
		req.Name, req.DID, req.Mixer,
		req.Size, CompositionType(req.Composition), VADMode(req.VAD), req.Profile,
		CodecLists{
			Audio: ParseCodecList(req.AudioCodecs),
			Video: ParseCodecList(req.VideoCodecs),
			Text:  ParseCodecList(req.TextCodecs),
		},
	)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conferenceToResponse(conf))
}

// ListConferences handles GET /conferences.
func (h *Handler) ListConferences(w http.ResponseWriter, r *http.Request) {
	confs := h.orch.Conferences()
	out := make([]conferenceResponse, 0, len(confs))
	for _, c := range confs {
		out = append(out, conferenceToResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// RemoveConference handles DELETE /conferences/{uid}.
func (h *Handler) RemoveConference(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.RemoveConference(chi.URLParam(r, "uid")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddConferenceToken handles POST /conferences/{uid}/token.
func (h *Handler) AddConferenceToken(w http.ResponseWriter, r *http.Request) {
	grant, err := h.orch.AddConferenceToken(chi.URLParam(r, "uid"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, grant)
}

// SetProfile handles PUT /conferences/{uid}/profile.
func (h *Handler) SetProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Profile string `json:"profile"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.orch.SetProfile(chi.URLParam(r, "uid"), req.Profile); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCompositionType handles PUT /conferences/{uid}/composition.
func (h *Handler) SetCompositionType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MosaicID    int `json:"mosaic_id"`
		Composition int `json:"composition"`
		Size        int `json:"size"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.orch.SetCompositionType(chi.URLParam(r, "uid"), req.MosaicID, CompositionType(req.Composition), VideoSize(req.Size))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCodecs handles PUT /conferences/{uid}/codecs.
func (h *Handler) SetCodecs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind   string `json:"kind"`
		Codecs string `json:"codecs"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	kind := MediaKind(req.Kind)
	if kind != MediaAudio && kind != MediaVideo && kind != MediaText {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown media kind"})
		return
	}
	if err := h.orch.SetCodecs(chi.URLParam(r, "uid"), kind, ParseCodecList(req.Codecs)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateMosaic handles POST /conferences/{uid}/mosaics.
func (h *Handler) CreateMosaic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Composition int `json:"composition"`
		Size        int `json:"size"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.orch.CreateMosaic(chi.URLParam(r, "uid"), CompositionType(req.Composition), VideoSize(req.Size))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"mosaic_id": id})
}

// DeleteMosaic handles DELETE /conferences/{uid}/mosaics/{mosaicID}.
func (h *Handler) DeleteMosaic(w http.ResponseWriter, r *http.Request) {
	mosaicID, ok := intParam(w, r, "mosaicID")
	if !ok {
		return
	}
	if err := h.orch.DeleteMosaic(chi.URLParam(r, "uid"), mosaicID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetMosaicOverlay handles PUT /conferences/{uid}/mosaics/{mosaicID}/overlay.
func (h *Handler) SetMosaicOverlay(w http.ResponseWriter, r *http.Request) {
	mosaicID, ok := intParam(w, r, "mosaicID")
	if !ok {
		return
	}
	var req struct {
		Filename string `json:"filename"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.orch.SetMosaicOverlayImage(chi.URLParam(r, "uid"), mosaicID, req.Filename); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetMosaicOverlay handles DELETE /conferences/{uid}/mosaics/{mosaicID}/overlay.
func (h *Handler) ResetMosaicOverlay(w http.ResponseWriter, r *http.Request) {
	mosaicID, ok := intParam(w, r, "mosaicID")
	if !ok {
		return
	}
	if err := h.orch.ResetMosaicOverlay(chi.URLParam(r, "uid"), mosaicID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMosaicParticipant handles POST /conferences/{uid}/mosaics/{mosaicID}/participants.
func (h *Handler) AddMosaicParticipant(w http.ResponseWriter, r *http.Request) {
	mosaicID, ok := intParam(w, r, "mosaicID")
	if !ok {
		return
	}
	var req struct {
		ParticipantID int `json:"participant_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.orch.AddMosaicParticipant(chi.URLParam(r, "uid"), mosaicID, req.ParticipantID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMosaicParticipant handles DELETE /conferences/{uid}/mosaics/{mosaicID}/participants/{partID}.
func (h *Handler) RemoveMosaicParticipant(w http.ResponseWriter, r *http.Request) {
	mosaicID, ok := intParam(w, r, "mosaicID")
	if !ok {
		return
	}
	partID, ok := intParam(w, r, "partID")
	if !ok {
		return
	}
	if err := h.orch.RemoveMosaicParticipant(chi.URLParam(r, "uid"), mosaicID, partID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetMosaicSlot handles PUT /conferences/{uid}/mosaics/{mosaicID}/slots/{slot}.
func (h *Handler) SetMosaicSlot(w http.ResponseWriter, r *http.Request) {
	mosaicID, ok := intParam(w, r, "mosaicID")
	if !ok {
		return
	}
	slot, ok := intParam(w, r, "slot")
	if !ok {
		return
	}
	var req struct {
		ParticipantID int `json:"participant_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.orch.SetMosaicSlot(chi.URLParam(r, "uid"), mosaicID, slot, req.ParticipantID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CallParticipant handles POST /conferences/{uid}/participants.
func (h *Handler) CallParticipant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dest  string `json:"dest"`
		Proxy string `json:"proxy"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	part, err := h.orch.CallParticipant(chi.URLParam(r, "uid"), req.Dest, req.Proxy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"participant_id": part.ID(), "name": part.Name()})
}

// AcceptParticipant handles POST /conferences/{uid}/participants/{partID}/accept.
func (h *Handler) AcceptParticipant(w http.ResponseWriter, r *http.Request) {
	partID, ok := intParam(w, r, "partID")
	if !ok {
		return
	}
	var req struct {
		MosaicID  int `json:"mosaic_id"`
		SidebarID int `json:"sidebar_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.orch.AcceptParticipant(chi.URLParam(r, "uid"), partID, req.MosaicID, req.SidebarID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RejectParticipant handles POST /conferences/{uid}/participants/{partID}/reject.
func (h *Handler) RejectParticipant(w http.ResponseWriter, r *http.Request) {
	partID, ok := intParam(w, r, "partID")
	if !ok {
		return
	}
	if err := h.orch.RejectParticipant(chi.URLParam(r, "uid"), partID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveParticipant handles DELETE /conferences/{uid}/participants/{partID}.
func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	partID, ok := intParam(w, r, "partID")
	if !ok {
		return
	}
	if err := h.orch.RemoveParticipant(chi.URLParam(r, "uid"), partID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetAudioMute handles PUT /conferences/{uid}/participants/{partID}/audio-mute.
func (h *Handler) SetAudioMute(w http.ResponseWriter, r *http.Request) {
	h.setMute(w, r, h.orch.SetAudioMute)
}

// SetVideoMute handles PUT /conferences/{uid}/participants/{partID}/video-mute.
func (h *Handler) SetVideoMute(w http.ResponseWriter, r *http.Request) {
	h.setMute(w, r, h.orch.SetVideoMute)
}

func (h *Handler) setMute(w http.ResponseWriter, r *http.Request, set func(string, int, bool) error) {
	partID, ok := intParam(w, r, "partID")
	if !ok {
		return
	}
	var req struct {
		Muted bool `json:"muted"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := set(chi.URLParam(r, "uid"), partID, req.Muted); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangeParticipantProfile handles PUT /conferences/{uid}/participants/{partID}/profile.
func (h *Handler) ChangeParticipantProfile(w http.ResponseWriter, r *http.Request) {
	partID, ok := intParam(w, r, "partID")
	if !ok {
		return
	}
	var req struct {
		Profile string `json:"profile"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.orch.ChangeParticipantProfile(chi.URLParam(r, "uid"), partID, req.Profile); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type broadcastRequest struct {
	Name  string `json:"name"`
	Tag   string `json:"tag"`
	Mixer string `json:"mixer"`
}

type broadcastResponse struct {
	UID       string `json:"uid"`
	SessionID int    `json:"session_id"`
	Name      string `json:"name"`
	Tag       string `json:"tag"`
	Mixer     string `json:"mixer"`
}

func broadcastToResponse(b *Broadcast) broadcastResponse {
	return broadcastResponse{UID: b.UID, SessionID: b.SessionID, Name: b.Name, Tag: b.Tag, Mixer: b.MixerUID}
}

// CreateBroadcast handles POST /broadcasts.
func (h *Handler) CreateBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bcast, err := h.orch.CreateBroadcast(req.Name, req.Tag, req.Mixer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IncBroadcastsCreated()
	}
	writeJSON(w, http.StatusCreated, broadcastToResponse(bcast))
}

// ListBroadcasts handles GET /broadcasts.
func (h *Handler) ListBroadcasts(w http.ResponseWriter, r *http.Request) {
	bcasts := h.orch.Broadcasts()
	out := make([]broadcastResponse, 0, len(bcasts))
	for _, b := range bcasts {
		out = append(out, broadcastToResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// RemoveBroadcast handles DELETE /broadcasts/{uid}.
func (h *Handler) RemoveBroadcast(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.RemoveBroadcast(chi.URLParam(r, "uid")); err != nil {
		h.writeError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IncBroadcastsRemoved()
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddBroadcastToken handles POST /broadcasts/{uid}/token.
func (h *Handler) AddBroadcastToken(w http.ResponseWriter, r *http.Request) {
	grant, err := h.orch.AddBroadcastToken(chi.URLParam(r, "uid"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, grant)
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}
