// Package keyspace provides the in-memory key-value store for pulsekv.
//
// Keys map to domain.Entry values held in a sharded concurrent map
// (pkg/cmap). Expiration is lazy: an entry whose expiry has elapsed stays in
// memory until the next GET or EXPIRE on that key evicts it. A Sweeper may
// optionally reclaim elapsed entries in the background; it only removes
// entries that a read would already treat as gone.
//
// Every operation runs under the exclusive lock of the key's shard, so the
// read-check-evict sequence of Get and Expire is atomic with respect to any
// other operation on the same key.
package keyspace
