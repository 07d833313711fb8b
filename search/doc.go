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


// Package search provides hybrid retrieval over the chunk index.
//
// The Searcher type implements a multi-stage search algorithm that combines:
//   - Semantic retrieval using vector embeddings
//   - Keyword retrieval over the lexical index
//   - Score fusion with min-max normalization and ranking boosts
//
// Retrieval legs run concurrently and degrade independently: a provider
// failure or leg timeout removes that leg's contribution instead of failing
// the query, and the search fails only when no leg could answer. Concurrent
// identical queries coalesce into one computation, and ranked results from
// healthy computations persist in the query cache until evicted.
package search
