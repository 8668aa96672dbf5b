// Package task provides the in-process tracking of file-augmented question
// tasks and the bounded worker pool that executes them.
//
// Task state lives only in process memory and intentionally does not survive
// a restart: a client polling a task id after a restart receives 404 and is
// expected to resubmit. The store is constructed at service start-up and
// discarded at shutdown.
package task
