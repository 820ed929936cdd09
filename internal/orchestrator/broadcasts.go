package orchestrator

import (
	"fmt"

	"github.com/google/uuid"
)

// CreateBroadcast allocates a broadcast session on the mixer, registers it
// locally and then publishes it. Publish is fire-and-forget: a failure is
// logged but the broadcast stays registered; an operator removes it
// explicitly if needed.
func (o *Orchestrator) CreateBroadcast(name, tag, mixerID string) (*Broadcast, error) {
	mixer, ok := o.mixers.Get(mixerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMixerNotFound, mixerID)
	}
	client, err := o.clients.Broadcaster(mixer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteProvisioning, err)
	}
	sessionID, err := client.CreateBroadcast(name, tag)
	if err != nil {
		o.log.Error("create broadcast failed", "mixer", mixerID, "name", name, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRemoteProvisioning, err)
	}
	bcast := &Broadcast{
		UID:       uuid.NewString(),
		SessionID: sessionID,
		Name:      name,
		Tag:       tag,
		MixerUID:  mixer.UID,
	}
	o.bcasts.register(bcast)
	if err := client.PublishBroadcast(sessionID, tag); err != nil {
		o.log.Error("publish broadcast failed", "broadcast", bcast.UID, "session", sessionID, "error", err)
	}
	o.log.Info("created broadcast", "broadcast", bcast.UID, "session", sessionID, "mixer", mixerID)
	return bcast, nil
}

// AddBroadcastToken mints a viewer token, registers it with the mixer and
// returns the playback URL. The URL is returned even when the remote
// registration fails (logged only); callers must treat it as advisory in
// that case.
func (o *Orchestrator) AddBroadcastToken(uid string) (RTMPURL, error) {
	bcast, ok := o.bcasts.get(uid)
	if !ok {
		return RTMPURL{}, fmt.Errorf("%w: %s", ErrBroadcastNotFound, uid)
	}
	mixer, ok := o.mixers.Get(bcast.MixerUID)
	if !ok {
		return RTMPURL{}, fmt.Errorf("%w: %s", ErrMixerNotFound, bcast.MixerUID)
	}
	token := uuid.NewString()
	client, err := o.clients.Broadcaster(mixer)
	if err != nil {
		o.log.Error("broadcast client unavailable", "broadcast", uid, "error", err)
	} else if err := client.AddBroadcastToken(bcast.SessionID, token); err != nil {
		o.log.Error("register broadcast token failed", "broadcast", uid, "session", bcast.SessionID, "error", err)
	}
	return RTMPURL{
		URL: "rtmp://" + mixer.PublicIP + "/broadcaster/watcher/" + token,
		Tag: bcast.Tag,
	}, nil
}

// RemoveBroadcast removes the local registry entry first and then attempts
// remote unpublish and delete, so a struggling node cannot block local
// bookkeeping from reflecting the session as gone.
func (o *Orchestrator) RemoveBroadcast(uid string) error {
	bcast, ok := o.bcasts.remove(uid)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBroadcastNotFound, uid)
	}
	mixer, ok := o.mixers.Get(bcast.MixerUID)
	if !ok {
		o.log.Warn("broadcast mixer no longer registered", "broadcast", uid, "mixer", bcast.MixerUID)
		return nil
	}
	client, err := o.clients.Broadcaster(mixer)
	if err != nil {
		o.log.Error("broadcast client unavailable", "broadcast", uid, "error", err)
		return nil
	}
	if err := client.UnpublishBroadcast(bcast.SessionID); err != nil {
		o.log.Error("unpublish broadcast failed", "broadcast", uid, "session", bcast.SessionID, "error", err)
	}
	if err := client.DeleteBroadcast(bcast.SessionID); err != nil {
		o.log.Error("delete broadcast failed", "broadcast", uid, "session", bcast.SessionID, "error", err)
	}
	o.log.Info("removed broadcast", "broadcast", uid)
	return nil
}

// GetBroadcast returns the broadcast with the given local uid.
func (o *Orchestrator) GetBroadcast(uid string) (*Broadcast, error) {
	bcast, ok := o.bcasts.get(uid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBroadcastNotFound, uid)
	}
	return bcast, nil
}

// Broadcasts returns a snapshot of all registered broadcasts.
func (o *Orchestrator) Broadcasts() []*Broadcast {
	return o.bcasts.list()
}

// BroadcastCount returns the number of registered broadcasts, for the
// metrics gauge.
func (o *Orchestrator) BroadcastCount() int {
	return o.bcasts.count()
}
