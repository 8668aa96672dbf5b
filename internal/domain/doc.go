// Package domain contains the core entities of the question-answering
// service and their validation rules. Entities are plain structs created
// through constructor functions that enforce invariants at creation time.
package domain
