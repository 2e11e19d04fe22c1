package registry

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
	"github.com/yamcs-studio/yamcs-ws/internal/request"
	"github.com/yamcs-studio/yamcs-ws/internal/router"
)

// Submitter queues outgoing requests. *connection.Client satisfies it.
type Submitter interface {
	SendRequest(evt request.Event)
}

// Registry is the reference-counted desired subscription set.
type Registry struct {
	router.NopListener

	submitter Submitter
	logger    *slog.Logger

	mu             sync.Mutex
	refs           map[string]int
	ids            map[string]protocol.NamedObjectID
	commandHistory bool
}

// New creates an empty registry that submits requests through s.
func New(s Submitter, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		submitter: s,
		logger:    logger.With("component", "registry"),
		refs:      make(map[string]int),
		ids:       make(map[string]protocol.NamedObjectID),
	}
}

// Subscribe takes a reference on each id and subscribes the ones that were
// not yet held.
func (r *Registry) Subscribe(ids ...protocol.NamedObjectID) {
	r.mu.Lock()
	var added []protocol.NamedObjectID
	for _, id := range ids {
		key := id.Key()
		if r.refs[key] == 0 {
			r.ids[key] = id
			added = append(added, id)
		}
		r.refs[key]++
	}
	r.mu.Unlock()

	if len(added) == 0 {
		return
	}
	r.logger.Debug("subscribing parameters", "count", len(added))
	r.submitter.SendRequest(request.ParameterSubscribe{IDs: added})
}

// Unsubscribe releases a reference on each id and unsubscribes the ones no
// longer held. Releasing an id that is not held is a no-op.
func (r *Registry) Unsubscribe(ids ...protocol.NamedObjectID) {
	r.mu.Lock()
	var removed []protocol.NamedObjectID
	for _, id := range ids {
		key := id.Key()
		n, ok := r.refs[key]
		if !ok {
			continue
		}
		if n > 1 {
			r.refs[key] = n - 1
			continue
		}
		removed = append(removed, r.ids[key])
		delete(r.refs, key)
		delete(r.ids, key)
	}
	r.mu.Unlock()

	if len(removed) == 0 {
		return
	}
	r.logger.Debug("unsubscribing parameters", "count", len(removed))
	r.submitter.SendRequest(request.ParameterUnsubscribe{IDs: removed})
}

// SubscribeCommandHistory subscribes to all command history, now and after
// every reconnect.
func (r *Registry) SubscribeCommandHistory() {
	r.mu.Lock()
	r.commandHistory = true
	r.mu.Unlock()

	r.submitter.SendRequest(request.SubscribeAllCommandHistory{})
}

// Active returns the held ids sorted by key.
func (r *Registry) Active() []protocol.NamedObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLocked()
}

// Refs returns the reference count held on id.
func (r *Registry) Refs(id protocol.NamedObjectID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs[id.Key()]
}

// Len returns the number of held ids.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func (r *Registry) activeLocked() []protocol.NamedObjectID {
	out := make([]protocol.NamedObjectID, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})
	return out
}

// OnConnected resubscribes everything held.
func (r *Registry) OnConnected() {
	r.mu.Lock()
	active := r.activeLocked()
	history := r.commandHistory
	r.mu.Unlock()

	r.logger.Info("restoring subscriptions",
		"parameters", len(active),
		"command_history", history,
	)

	if len(active) > 0 {
		r.submitter.SendRequest(request.ParameterSubscribe{IDs: active})
	}
	if history {
		r.submitter.SendRequest(request.SubscribeAllCommandHistory{})
	}
}

// OnDisconnected keeps the set; it is restored on the next OnConnected.
func (r *Registry) OnDisconnected() {
	r.logger.Debug("connection lost, holding subscriptions", "parameters", r.Len())
}

// OnInvalidIdentification drops ids the server does not know.
func (r *Registry) OnInvalidIdentification(ids []protocol.NamedObjectID) {
	r.mu.Lock()
	var forgotten int
	for _, id := range ids {
		key := id.Key()
		if _, ok := r.ids[key]; ok {
			delete(r.ids, key)
			delete(r.refs, key)
			forgotten++
		}
	}
	r.mu.Unlock()

	if forgotten > 0 {
		r.logger.Warn("forgetting invalid parameters", "count", forgotten)
	}
}
