// Package llm wraps the OpenAI API for text completion and embeddings.
package llm
