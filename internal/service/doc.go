// Package service contains the orchestration layer between the HTTP surface
// and the lower-level components: question routing, asynchronous file tasks,
// streaming sessions and the durable conversation writer.
package service
