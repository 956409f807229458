package cmap

// RemoveIf deletes every entry for which pred returns true and reports how
// many were removed. Each shard is scanned under its exclusive lock.
func (m *Map[V]) RemoveIf(pred func(key string, value V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if pred(k, v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
