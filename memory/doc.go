// Package memory contains the conversation Repository contract and its
// concrete backends. The in-memory repository is the default for tests and
// ephemeral demos; the filesystem and sqlite repositories persist one
// self-describing record per thread and survive process restarts.
//
// Add additional backends (Redis, Postgres, object storage, etc.) in this
// package without changing any calling code – only the wiring layer needs to
// decide which implementation to instantiate.
package memory
