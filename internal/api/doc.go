// Package api contains the HTTP handlers, request/response models and error
// mapping for the chat service's REST and SSE surface.
package api
