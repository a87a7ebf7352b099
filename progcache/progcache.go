// Package progcache implements the program cache of spec §4.1: a
// content-addressed, deduplicated store mapping a fparams.Parameters
// fingerprint to a compiled compute program.
//
// The store is modeled on the teacher's mesh storage (a single
// mutex-guarded object owning GPU resources, reached through package-
// level or shared-pointer access rather than a context object per
// call) generalized from vertex/index spans to compiled shaders.
package progcache

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/arnek/gpufft/driver"
	"github.com/arnek/gpufft/fparams"
)

// Program is an owned compiled compute program plus the pipeline
// state built around it. It is what the cache stores and what a Pass
// (package plan) holds a non-owning reference to.
type Program struct {
	Code     driver.ShaderCode
	Pipeline driver.Pipeline
	// debugID is a human-readable label for log output; it plays no
	// role in cache identity, which is defined purely by the
	// fparams.Parameters byte encoding.
	debugID string
}

// DebugID returns a label useful for log correlation. It is assigned
// once at insertion and is not part of the cache's lookup key.
func (p *Program) DebugID() string { return p.debugID }

func (p *Program) destroy() {
	if p == nil {
		return
	}
	if p.Pipeline != nil {
		p.Pipeline.Destroy()
	}
	if p.Code != nil {
		p.Code.Destroy()
	}
}

// Cache is a shared, reference-counted, content-addressed map from a
// Parameters fingerprint to an owned Program. Multiple plans and
// benchmarks share one Cache so that shader compilation is amortized
// across all of them; the cache is only actually destroyed once every
// sharer has released it.
type Cache struct {
	mu      sync.Mutex
	entries map[fparams.Key]*Program
	refs    int32
}

// New returns a Cache with an initial reference count of one. Callers
// that hand the Cache to additional owners (e.g. a second Plan) must
// call Retain for each additional owner and Release when that owner
// is done; the underlying programs are destroyed when the reference
// count reaches zero.
func New() *Cache {
	return &Cache{
		entries: make(map[fparams.Key]*Program),
		refs:    1,
	}
}

// Retain increments the cache's reference count and returns the
// cache, so it can be chained at a call site that hands the cache to
// a new owner.
func (c *Cache) Retain() *Cache {
	atomic.AddInt32(&c.refs, 1)
	return c
}

// Release decrements the cache's reference count. When it reaches
// zero, every program still stored in the cache is destroyed. Calling
// Release more times than the cache has owners is a contract
// violation (mirroring the teacher's move-only handle discipline); it
// does not panic: the count drops below zero and the extra calls
// destroy nothing.
func (c *Cache) Release() {
	if atomic.AddInt32(&c.refs, -1) != 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, p := range c.entries {
		p.destroy()
		delete(c.entries, k)
	}
}

// Find returns the program registered for p, or nil if there is no
// such entry. Find never allocates.
func (c *Cache) Find(p fparams.Parameters) *Program {
	key := p.Bytes()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key]
}

// Insert registers prog under p, taking ownership of it. Any prior
// entry for p is destroyed and overwritten. Insert never fails for a
// valid program handle.
func (c *Cache) Insert(p fparams.Parameters, code driver.ShaderCode, pipeline driver.Pipeline) *Program {
	key := p.Bytes()
	prog := &Program{
		Code:     code,
		Pipeline: pipeline,
		debugID:  uuid.NewString(),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[key]; ok {
		prev.destroy()
	}
	c.entries[key] = prog
	return prog
}

// Size returns the number of distinct programs currently stored.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
