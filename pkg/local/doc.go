/*
Package local reads the operator's machine-local configuration: which
deployments exist, which namespace and clusters each maps to, how cluster
references resolve to kubeconfig contexts, and who the operator is.

The remote configuration manager uses it to default the namespace and context
of a command invocation before touching the cluster. Resolution failures are
reported as errdefs.ErrConfiguration.
*/
package local
