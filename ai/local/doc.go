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


// Package local provides a deterministic on-device embedding implementation.
//
// The embedder feature-hashes tokens into a fixed-width vector using BLAKE2b
// and L2-normalizes the result. It has no external dependencies, never
// fails, and always produces the same vector for the same text, which makes
// it the fallback tier behind remote providers: when the remote service is
// down or rate-limited, search degrades to token-overlap similarity instead
// of erroring.
//
// Vectors from this package are tagged with the provider name "local" and
// are never compared against vectors from other providers.
package local
