/*
Package remote implements the remote configuration subsystem: the single
authoritative, versioned record of a deployment's topology, persisted as a
ConfigMap inside the target cluster itself.

# Architecture

The package is built from three pieces, dependency order bottom up:

  - Document: aggregates the component registry, cluster map, metadata, a
    bounded command history, and persisted flags, with whole-document
    validation and an exact to/from serialization boundary.
  - Validator: cross-checks declared components against the pods actually
    running, using kind-specific label selectors. Checks fan out concurrently
    as independent reads.
  - Manager: the single entry point every command uses. It resolves missing
    namespace/context defaults from local configuration, loads the document
    fresh at the start of every command, and funnels every mutation through a
    validate-then-save transaction.

# Consistency model

Persistence is a whole-document replace with no optimistic concurrency token;
two concurrent writers would lose an update. Correctness depends on an
external lease obtained before a mutating command sequence begins. When a
deployment spans multiple clusters, the replace is dispatched to every
cluster concurrently and is not atomic: a partial failure is surfaced in the
error and logs, never silently repaired.
*/
package remote
