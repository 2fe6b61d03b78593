// Package statecache is the durable key-value store of the client: numbered
// records (uint32 id to opaque blob) in a per-account SQLite database named
// statecache_<name>.db. Resume records of interrupted transfers live here.
//
// Besides single statements, callers may group writes with Begin/Commit/
// Rollback or run a function atomically with Atomic.
package statecache
