package chtype

import (
	"sync"

	"github.com/go-faster/city"
)

// Registry interns parsed type trees by canonical textual form. A process typically needs only
// one Registry; the zero value is ready to use.
type Registry struct {
	mu     sync.RWMutex
	shards map[uint64]map[string]*Type

	jsonSchemas map[string]*Type
}

// NewRegistry returns a ready-to-use, empty Registry.
func NewRegistry() *Registry {
	return &Registry{shards: make(map[uint64]map[string]*Type)}
}

// shardKey hashes the canonical form with CityHash to pick the shard map
// that holds it. The full canonical text is hashed on every lookup.
func shardKey(canonical string) uint64 {
	return city.Hash64([]byte(canonical))
}

// Parse parses s and returns the interned *Type for its canonical form.
// Two calls with textually different but semantically identical input
// (e.g. whitespace differences) intern to the same canonical string and
// so return the same *Type pointer.
func (r *Registry) Parse(s string) (*Type, error) {
	t, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return r.intern(t), nil
}

func (r *Registry) intern(t *Type) *Type {
	canon := t.Canonical()
	key := shardKey(canon)

	r.mu.RLock()
	if shard, ok := r.shards[key]; ok {
		if existing, ok := shard[canon]; ok {
			r.mu.RUnlock()
			return existing
		}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shards == nil {
		r.shards = make(map[uint64]map[string]*Type)
	}
	shard, ok := r.shards[key]
	if !ok {
		shard = make(map[string]*Type)
		r.shards[key] = shard
	}
	if existing, ok := shard[canon]; ok {
		return existing
	}
	shard[canon] = t
	return t
}

// RegisterJSONType names a JSON column shape so callers that render or
// validate against it don't have to repeat the type text. Wire encoding of
// a JSON value is unaffected: it still goes through chwire's tagged
// encoding regardless of whether a name is registered for it.
func (r *Registry) RegisterJSONType(name string, schema *Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jsonSchemas == nil {
		r.jsonSchemas = make(map[string]*Type)
	}
	r.jsonSchemas[name] = schema
}

// JSONType looks up a schema registered with RegisterJSONType.
func (r *Registry) JSONType(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.jsonSchemas[name]
	return t, ok
}

// Len reports how many distinct canonical types are currently interned.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, shard := range r.shards {
		n += len(shard)
	}
	return n
}
