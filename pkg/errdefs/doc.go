/*
Package errdefs defines the error taxonomy shared by the remote configuration
subsystem.

Only ErrNotFound is a soft failure; everything else aborts the invoking
command. Errors are wrapped with identifying context (entity name, type,
cluster, namespace) and classified with errors.Is.
*/
package errdefs
