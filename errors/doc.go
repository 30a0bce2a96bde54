// Package errors provides the coded error type used across bufferstream.
// Errors carry a machine-readable code, an HTTP status for the httpapi
// surface, and an optional cause.
package errors
