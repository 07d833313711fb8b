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

import (
	"fmt"
	"strings"
)

const (
	// MaxQueryLength is the maximum accepted query length in bytes.
	// Long enough for chunk-sized representative texts used by
	// similar-document lookups.
	MaxQueryLength = 8192

	// MaxDocumentBytes is the maximum accepted document size.
	MaxDocumentBytes = 10 << 20
)

// ValidateQuery validates search inputs according to domain rules.
//
// Validation rules:
//   - Query must contain non-whitespace content
//   - Query must not exceed MaxQueryLength bytes
//   - Mode must be a recognized SearchMode
//   - Limit must be positive
func ValidateQuery(query string, mode SearchMode, limit int) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyQuery)
	}

	if len(query) > MaxQueryLength {
		return fmt.Errorf("%w: %w: %d bytes", ErrValidation, ErrQueryTooLong, len(query))
	}

	if !mode.IncludesSemantic() && !mode.IncludesKeyword() {
		return fmt.Errorf("%w: %w: %d", ErrValidation, ErrInvalidSearchMode, mode)
	}

	if limit <= 0 {
		return fmt.Errorf("%w: %w: %d", ErrValidation, ErrInvalidLimit, limit)
	}

	return nil
}

// ValidateDocumentText validates raw document text before ingestion.
//
// Validation rules:
//   - Text must contain non-whitespace content
//   - Text must not exceed MaxDocumentBytes
func ValidateDocumentText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyDocument)
	}

	if len(text) > MaxDocumentBytes {
		return fmt.Errorf("%w: %w: %d bytes", ErrValidation, ErrDocumentTooLarge, len(text))
	}

	return nil
}

// ValidateStatusTransition checks that a document status change follows the
// forward-only lifecycle.
func ValidateStatusTransition(from, to DocumentStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
	}
	return nil
}
