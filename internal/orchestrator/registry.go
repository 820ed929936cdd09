package orchestrator

import "sync"

// conferenceRegistry tracks active conferences by uid. Its lock is held only
// for map reads and mutations; the two-phase creation protocol in service.go
// acquires it once before and once after the remote provisioning call.
type conferenceRegistry struct {
	mu    sync.Mutex
	byUID map[string]Conference
}

func newConferenceRegistry() *conferenceRegistry {
	return &conferenceRegistry{byUID: make(map[string]Conference)}
}

// lookupDID returns the active conference holding did, if any. Empty DIDs
// never match.
func (r *conferenceRegistry) lookupDID(did string) (Conference, bool) {
	if did == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupDIDLocked(did)
}

func (r *conferenceRegistry) lookupDIDLocked(did string) (Conference, bool) {
	for _, conf := range r.byUID {
		if conf.DID() == did {
			return conf, true
		}
	}
	return nil, false
}

// register inserts conf unless another active conference already holds its
// DID. It returns the conflicting conference when registration is refused.
// This is the commit point of the creation protocol: the caller re-validates
// DID uniqueness here after the unlocked remote call.
func (r *conferenceRegistry) register(conf Conference) (winner Conference, registered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if did := conf.DID(); did != "" {
		if existing, ok := r.lookupDIDLocked(did); ok {
			return existing, false
		}
	}
	r.byUID[conf.UID()] = conf
	return conf, true
}

// remove deletes the conference and reports whether it was present, so the
// destroyed notification can fire exactly once.
func (r *conferenceRegistry) remove(uid string) (Conference, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conf, ok := r.byUID[uid]
	if ok {
		delete(r.byUID, uid)
	}
	return conf, ok
}

func (r *conferenceRegistry) get(uid string) (Conference, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conf, ok := r.byUID[uid]
	return conf, ok
}

func (r *conferenceRegistry) list() []Conference {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Conference, 0, len(r.byUID))
	for _, conf := range r.byUID {
		out = append(out, conf)
	}
	return out
}

func (r *conferenceRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUID)
}

// broadcastRegistry tracks broadcast sessions by local uid.
type broadcastRegistry struct {
	mu    sync.Mutex
	byUID map[string]*Broadcast
}

func newBroadcastRegistry() *broadcastRegistry {
	return &broadcastRegistry{byUID: make(map[string]*Broadcast)}
}

func (r *broadcastRegistry) register(b *Broadcast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUID[b.UID] = b
}

func (r *broadcastRegistry) remove(uid string) (*Broadcast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byUID[uid]
	if ok {
		delete(r.byUID, uid)
	}
	return b, ok
}

func (r *broadcastRegistry) get(uid string) (*Broadcast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byUID[uid]
	return b, ok
}

func (r *broadcastRegistry) list() []*Broadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Broadcast, 0, len(r.byUID))
	for _, b := range r.byUID {
		out = append(out, b)
	}
	return out
}

func (r *broadcastRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUID)
}
