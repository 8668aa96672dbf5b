// Package stream manages the push channel of one streaming answer: chunk
// sequencing, the session timeout watchdog, and the OPEN -> STREAMING ->
// {COMPLETE | ERROR | TIMEOUT} state transitions. One Relay serves exactly
// one streaming request and cannot be reused.
package stream
