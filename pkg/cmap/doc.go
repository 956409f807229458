// Package cmap provides a sharded concurrent map keyed by strings.
//
// Keys are spread over a power-of-two number of shards with murmur3; each
// shard owns a plain map guarded by its own RWMutex. Every operation on a
// given key runs under that key's shard lock, so single-key operations are
// serialized with respect to each other:
//
//	m := cmap.New[*domain.Entry]()
//	m.Set("key", entry)
//	m.Compute("key", func(e *domain.Entry, ok bool) (*domain.Entry, cmap.Action) {
//		if ok && e.ExpiredAt(now) {
//			return nil, cmap.Remove
//		}
//		return e, cmap.Keep
//	})
//
// Count, Stats and RemoveIf take shard locks one at a time and therefore
// observe a view that may not be consistent across shards.
package cmap
