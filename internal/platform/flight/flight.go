// Package flight collapses concurrent duplicate work onto a single execution
package flight

import (
	"golang.org/x/sync/singleflight"
)

// Group deduplicates in-flight calls by key. Results are never cached:
// once a call completes the key is forgotten, so a failure cannot poison
// later callers
type Group[V any] struct {
	sf singleflight.Group
}

// Do executes fn once per key among concurrent callers. All callers of an
// in-flight key block until the single execution finishes and receive its
// result. shared reports whether the result was produced by another caller's
// execution
func (g *Group[V]) Do(key string, fn func() (V, error)) (v V, shared bool, err error) {
	res, err, shared := g.sf.Do(key, func() (any, error) {
		return fn()
	})
	if res != nil {
		v = res.(V)
	}
	return v, shared, err
}

// Forget drops any in-flight record for key so the next caller runs fresh
func (g *Group[V]) Forget(key string) { g.sf.Forget(key) }
