package orchestrator

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// MixerRegistry is the catalog of media-mixing nodes. The mutex guards the
// map and the synchronous persistence write; it is never held across an
// outbound network call.
type MixerRegistry struct {
	mu    sync.Mutex
	nodes map[string]*MixerNode
	store CatalogStore
	log   *slog.Logger
}

// NewMixerRegistry returns an empty registry persisting through store.
func NewMixerRegistry(store CatalogStore, log *slog.Logger) *MixerRegistry {
	return &MixerRegistry{
		nodes: make(map[string]*MixerNode),
		store: store,
		log:   log,
	}
}

// Load populates the registry from the persisted catalog. Malformed records
// are skipped and logged; the remainder still loads. Load does not write
// back.
func (r *MixerRegistry) Load() error {
	recs, err := r.store.LoadMixers()
	if err != nil {
		return fmt.Errorf("load mixers: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		node, err := NewMixerNode(rec.Name, rec.URL, rec.IP, rec.PublicIP, rec.LocalNet)
		if err != nil {
			r.log.Warn("skipping mixer record", "name", rec.Name, "url", rec.URL, "error", err)
			continue
		}
		r.nodes[node.UID] = node
	}
	return nil
}

// Add registers a mixer node and persists the catalog before returning.
func (r *MixerRegistry) Add(name, controlURL, ip, publicIP, localNet string) (*MixerNode, error) {
	node, err := NewMixerNode(name, controlURL, ip, publicIP, localNet)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node.UID] = node
	r.saveLocked()
	r.log.Info("mixer registered", "mixer", node.UID, "name", node.Name, "url", node.ControlURL)
	return node, nil
}

// Remove deletes the node and persists the catalog. Cascading conference
// destruction is the orchestrator's job and happens before this call.
func (r *MixerRegistry) Remove(uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[uid]; !ok {
		return fmt.Errorf("%w: %s", ErrMixerNotFound, uid)
	}
	delete(r.nodes, uid)
	r.saveLocked()
	r.log.Info("mixer removed", "mixer", uid)
	return nil
}

// Get returns the node with the given uid.
func (r *MixerRegistry) Get(uid string) (*MixerNode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[uid]
	return node, ok
}

// List returns a snapshot of all nodes sorted by name.
func (r *MixerRegistry) List() []*MixerNode {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*MixerNode, 0, len(r.nodes))
	for _, node := range r.nodes {
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// saveLocked persists the catalog. Failures are logged; in-memory state
// stays authoritative. Caller must hold r.mu.
func (r *MixerRegistry) saveLocked() {
	recs := make([]MixerRecord, 0, len(r.nodes))
	for _, node := range r.nodes {
		recs = append(recs, MixerRecord{
			Name:     node.Name,
			URL:      node.ControlURL,
			IP:       node.IP,
			PublicIP: node.PublicIP,
			LocalNet: node.LocalNet,
		})
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
	if err := r.store.SaveMixers(recs); err != nil {
		r.log.Error("persist mixer catalog failed", "error", err)
	}
}
