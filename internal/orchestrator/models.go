package orchestrator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// CompositionType selects the video-layout algorithm a mixer applies when
// combining participant streams.
type CompositionType int

const (
	CompositionMosaic CompositionType = iota
	CompositionOnePlusN
	CompositionSingle
)

// VADMode controls voice-activity-driven layout switching.
type VADMode int

const (
	VADNone VADMode = iota
	VADBasic
	VADFull
)

// VideoSize is a named video frame size.
type VideoSize int

const (
	SizeQCIF VideoSize = iota
	SizeCIF
	SizeVGA
	Size720p
	Size1080p
)

// MediaKind distinguishes the three media channels a conference negotiates.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
	MediaText  MediaKind = "text"
)

// DefaultMosaic and DefaultSidebar address the implicit layout every
// conference starts with.
const (
	DefaultMosaic  = 0
	DefaultSidebar = 0
)

// mixerNamespace is the fixed namespace for deriving mixer uids, so the same
// node descriptor always yields the same uid across restarts.
var mixerNamespace = uuid.MustParse("8a6e1d62-5a20-4a72-9d91-3f6c24cc10af")

// MixerNode describes a remote media-mixing server. Immutable after creation.
type MixerNode struct {
	UID        string
	Name       string
	ControlURL string
	IP         string
	PublicIP   string
	LocalNet   string
}

// NewMixerNode validates the control endpoint and derives the node's uid from
// its name and endpoint.
func NewMixerNode(name, controlURL, ip, publicIP, localNet string) (*MixerNode, error) {
	u, err := url.Parse(controlURL)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, controlURL)
	}
	uid := uuid.NewSHA1(mixerNamespace, []byte(name+"|"+controlURL)).String()
	return &MixerNode{
		UID:        uid,
		Name:       name,
		ControlURL: controlURL,
		IP:         ip,
		PublicIP:   publicIP,
		LocalNet:   localNet,
	}, nil
}

// Profile is an immutable encoding-quality preset.
type Profile struct {
	UID          string    `json:"uid"`
	Name         string    `json:"name"`
	VideoSize    VideoSize `json:"video_size"`
	VideoBitrate int       `json:"video_bitrate"`
	VideoFPS     int       `json:"video_fps"`
	IntraPeriod  int       `json:"intra_period"`
}

// ConferenceTemplate is an ad-hoc provisioning rule. Mixer and profile are
// held by uid and resolved at provisioning time.
type ConferenceTemplate struct {
	Name        string
	Pattern     string
	MixerUID    string
	ProfileUID  string
	Size        int
	CompType    CompositionType
	VAD         VADMode
	AudioCodecs []string
	VideoCodecs []string
	TextCodecs  []string
}

// Matches reports whether the template's DID pattern accepts did. A pattern
// ending in '*' is a prefix rule; anything else must match exactly.
func (t *ConferenceTemplate) Matches(did string) bool {
	if prefix, ok := strings.CutSuffix(t.Pattern, "*"); ok {
		return strings.HasPrefix(did, prefix)
	}
	return did == t.Pattern
}

// Broadcast is an outbound stream relay session. The local UID names it in
// the registry; SessionID is the mixer-assigned handle used for remote calls.
type Broadcast struct {
	UID       string
	SessionID int
	Name      string
	Tag       string
	MixerUID  string
}

// RTMPURL is an ephemeral viewer-access grant: a playback URL with an
// embedded token, plus the stream tag. It is never persisted; the mixer
// validates the token.
type RTMPURL struct {
	URL string `json:"url"`
	Tag string `json:"tag"`
}

// CodecLists carries per-kind codec overrides for conference creation.
// An empty list means "keep the conference defaults".
type CodecLists struct {
	Audio []string
	Video []string
	Text  []string
}

// ParseCodecList splits a comma-separated codec list, trimming whitespace and
// dropping empty entries. An empty input yields nil.
func ParseCodecList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
