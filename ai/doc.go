// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the embedding services used in Relevit.
//
// This package defines interfaces for producing vector embeddings from text.
// It follows the dependency inversion principle, allowing the core domain
// and business logic to depend on abstractions rather than concrete
// implementations.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text for one provider
//   - BatchEmbedder: Produces provider-tagged embeddings for batches of text
//   - QueryEmbedder: Produces a provider-tagged embedding for one query
//
// Every vector carries the name of the provider that produced it. Vectors
// from different providers have different dimensionalities and geometries
// and are never compared against each other.
//
// # Tiering
//
// TieredEmbedder composes a primary Embedder (typically remote) with a
// fallback Embedder (typically the local deterministic implementation). The
// primary is retried with jittered exponential backoff; once the retry
// budget is exhausted, the batch is embedded by the fallback and each result
// is tagged Fallback so callers can track degraded quality. Only a failure
// of every tier surfaces an error.
//
// CachingEmbedder wraps any BatchEmbedder with an in-memory text→embedding
// cache so identical text is never embedded twice in one process. It also
// implements QueryEmbedder, so queries share the same cache.
//
// # Implementation Packages
//
// The ai package includes three implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/local: Deterministic feature-hashing embedder, the fallback tier
//   - ai/mock: Embedder test double for unit testing without external services
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEmbedder, local.NewEmbedder) return
// INTERFACE types to enforce abstraction and prevent accidental coupling to
// concrete implementations.
//
//	embedder, err := openai.NewEmbedder(config)  // returns ai.Embedder
//
// Test utility constructors (mock.NewMockEmbedder) return CONCRETE types to
// enable test assertions and behavior injection via the mock's public fields
// and methods (CallCount, EmbedTextsFunc, Reset, etc.).
//
//	mockEmbed := mock.NewMockEmbedder()  // returns *mock.MockEmbedder
//	count := mockEmbed.CallCount()       // test assertion
//
// # Usage Example
//
//	config := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),
//	    ai.WithEmbeddingModel("embeddinggemma"),
//	)
//	primary, err := openai.NewEmbedder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fallback, err := local.NewEmbedder(config.LocalDimension)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tiered, err := ai.NewTieredEmbedder(primary, fallback,
//	    ai.WithRetryPolicy(config.MaxAttempts, config.RetryBaseDelay))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	embeddings, err := tiered.EmbedBatch(ctx, []string{"hello world"})
//
// # Architecture Benefits
//
//   - Testability: Business logic can be tested without external AI services
//   - Availability: The local tier keeps embedding working when providers fail
//   - Flexibility: Providers can be swapped without changing business logic
//   - Extensibility: New providers can be added by implementing Embedder
package ai
