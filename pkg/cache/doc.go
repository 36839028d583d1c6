/*
Package cache keeps a BoltDB-backed local copy of the last committed remote
configuration per deployment. The manager writes a snapshot after every
successful save; read-only commands fall back to it when the cluster is
unreachable. The in-cluster ConfigMap stays the single source of truth.
*/
package cache
