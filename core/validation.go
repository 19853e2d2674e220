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

import "fmt"

// ValidateVectorRecord validates a VectorRecord according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Values must not be empty
//
// NOT validated:
//   - Metadata (nil and empty are both valid)
//   - Dimensions against the index (checked by the backend)
func ValidateVectorRecord(record VectorRecord) error {
	if record.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidVectorRecord)
	}
	if len(record.Values) == 0 {
		return fmt.Errorf("%w: record %q has no values", ErrInvalidVectorRecord, record.ID)
	}
	return nil
}

// ValidateBatch checks that ids and vectors describe a consistent batch.
//
// Validation rules:
//   - Every vector has the same length as the first one
//   - len(ids) == len(vectors)
//
// The whole batch is rejected on the first violation.
func ValidateBatch(ids []string, vectors [][]float32) error {
	if len(vectors) > 0 {
		dims := len(vectors[0])
		for _, v := range vectors[1:] {
			if len(v) != dims {
				return fmt.Errorf("%w: not all vectors have %d dimensions", ErrDimensionMismatch, dims)
			}
		}
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("%w: %d ids for %d vectors", ErrCountMismatch, len(ids), len(vectors))
	}
	return nil
}

// ValidateDimensions checks that a requested index dimensionality is usable.
func ValidateDimensions(dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %d", ErrArgument, dimensions)
	}
	return nil
}
