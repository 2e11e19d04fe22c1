package request

import "github.com/yamcs-studio/yamcs-ws/internal/protocol"

// Union returns a followed by the ids of b not already present, without
// duplicates. Inputs are not modified.
func Union(a, b []protocol.NamedObjectID) []protocol.NamedObjectID {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]protocol.NamedObjectID, 0, len(a)+len(b))
	for _, list := range [][]protocol.NamedObjectID{a, b} {
		for _, id := range list {
			if _, ok := seen[id.Key()]; ok {
				continue
			}
			seen[id.Key()] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Subtract returns the ids of a that are not in b, keeping order.
func Subtract(a, b []protocol.NamedObjectID) []protocol.NamedObjectID {
	drop := make(map[string]struct{}, len(b))
	for _, id := range b {
		drop[id.Key()] = struct{}{}
	}
	out := make([]protocol.NamedObjectID, 0, len(a))
	for _, id := range a {
		if _, ok := drop[id.Key()]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func namesToIDs(names []string) []protocol.NamedObjectID {
	ids := make([]protocol.NamedObjectID, 0, len(names))
	for _, n := range names {
		ids = append(ids, protocol.NamedObjectID{Name: n})
	}
	return ids
}

// nonNil keeps the wire encoding as [] rather than null.
func nonNil(ids []protocol.NamedObjectID) []protocol.NamedObjectID {
	if ids == nil {
		return []protocol.NamedObjectID{}
	}
	return ids
}
