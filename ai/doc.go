// Package ai defines the provider-facing interfaces for embedding
// generation and entity tagging, plus the configuration and model-mapping
// machinery shared by all provider implementations.
//
// Concrete providers live in subpackages (openai for OpenAI-compatible
// HTTP services, mock for deterministic test doubles). Callers should
// depend on the interfaces in this package, never on a concrete provider.
package ai
