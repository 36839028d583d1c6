/*
Package log provides structured logging for hnetctl built on zerolog.

Call Init once from the CLI entry point, then use the global Logger or
WithComponent to create child loggers carrying the component field.
*/
package log
