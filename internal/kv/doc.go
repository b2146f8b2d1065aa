// Package kv provides the credential store used by the session, locale, and
// external platform services.
//
// Store is a plain string key-value interface (Get, Set, Clear). Three
// implementations are available and selected by config.StoreConfig.Driver:
//
//   - memory: MemoryStore, process-local, used by tests
//   - sqlite: SQLiteStore, a single kv table under the XDG data directory
//   - redis:  RedisStore, prefixed keys on a shared Redis
package kv
