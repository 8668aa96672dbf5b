// Package openai implements the generation.ModelClient capability against
// any OpenAI-compatible chat-completion endpoint, including DashScope's
// compatible mode for the Qwen models.
package openai
