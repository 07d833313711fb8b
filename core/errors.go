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


package core

import "errors"

// Error classes. Specific errors wrap one of these so callers can route on
// the class with errors.Is without matching exact failures.
var (
	// ErrValidation classifies inputs rejected before any work begins.
	ErrValidation = errors.New("validation failed")

	// ErrProvider classifies embedding provider failures. These are retried
	// and degraded to the fallback tier; they surface only when both tiers fail.
	ErrProvider = errors.New("embedding provider failed")

	// ErrStore classifies index store failures. These always surface, since a
	// silent empty answer would be indistinguishable from "no matches".
	ErrStore = errors.New("store operation failed")

	// ErrCache classifies cache failures. Callers treat these as cache misses.
	ErrCache = errors.New("cache operation failed")
)

// Domain validation errors
var (
	// ErrEmptyQuery indicates a query with no content.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrQueryTooLong indicates a query exceeding MaxQueryLength.
	ErrQueryTooLong = errors.New("query exceeds maximum length")

	// ErrEmptyDocument indicates document text with no content.
	ErrEmptyDocument = errors.New("document text cannot be empty")

	// ErrDocumentTooLarge indicates document text exceeding MaxDocumentBytes.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size")

	// ErrInvalidSearchMode indicates an unrecognized SearchMode value.
	ErrInvalidSearchMode = errors.New("invalid search mode")

	// ErrInvalidLimit indicates a non-positive result limit.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrInvalidStatusTransition indicates a DocumentStatus change that is not allowed.
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)
