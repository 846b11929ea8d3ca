// Package openai implements the ai interfaces against OpenAI-compatible
// HTTP APIs. It works with the hosted OpenAI service as well as local
// OpenAI-compatible servers such as Ollama, LocalAI, and vLLM.
package openai
