/*
Package types defines the core data structures of the remote configuration
subsystem.

This package contains the value types shared by all other packages:

  - Cluster: connection and DNS metadata for one member cluster, keyed by a
    short cluster reference throughout the remote configuration
  - Metadata and Migration: deployment identity, lifecycle state, and
    per-subsystem version strings
  - DeploymentState and NodeState: closed lifecycle enumerations
  - Flags: persisted common CLI flag values
  - CommandInvocation: one CLI invocation as seen by the manager

All types serialize to YAML for the in-cluster store and are deep-copyable so
read accessors can hand out snapshots instead of live references.
*/
package types
