/*
Package components implements the component registry of the remote
configuration subsystem.

A deployment is tracked as six fixed groups of components: consensus nodes,
haproxy and envoy proxies, mirror nodes, mirror node explorers, and JSON-RPC
relays. The Registry stores each group keyed by component name and enforces
two invariants on every mutation:

  - names are unique within a group
  - a stored value's runtime type always matches its declared kind

Read accessors return deep copies; the only way to change registry state is
through Add/Edit/Remove, which the document layer wraps in a
validate-then-persist transaction.
*/
package components
