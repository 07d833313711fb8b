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


package storage

import (
	"fmt"

	"github.com/poiesic/relevit/core"
)

// All storage sentinels wrap core.ErrStore, so callers can match either the
// specific condition or the whole class with errors.Is.
var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = fmt.Errorf("%w: record not found", core.ErrStore)

	// ErrDuplicateKey indicates a duplicate key violation.
	ErrDuplicateKey = fmt.Errorf("%w: duplicate key", core.ErrStore)

	// ErrTransactionFailed indicates that a transaction failed.
	ErrTransactionFailed = fmt.Errorf("%w: transaction failed", core.ErrStore)

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = fmt.Errorf("%w: storage is closed", core.ErrStore)

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = fmt.Errorf("%w: invalid query parameters", core.ErrStore)

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = fmt.Errorf("%w: serialization failed", core.ErrStore)

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = fmt.Errorf("%w: truncated data", core.ErrStore)
)
