// Package gemini implements the generation.ModelClient capability using
// Google's Gemini API.
package gemini
