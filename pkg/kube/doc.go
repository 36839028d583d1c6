/*
Package kube wraps the Kubernetes API surface consumed by the remote
configuration subsystem: ConfigMap read/create/replace and pod listing by
label selector, per namespace and kubeconfig context.

The Factory resolves a named kubeconfig context to a Client; commands that
span multiple clusters obtain one Client per member cluster. Absence of a
ConfigMap is reported as errdefs.ErrNotFound so the manager can treat it as a
soft failure; every other API error is wrapped as a hard read or write
failure.
*/
package kube
