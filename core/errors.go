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

// Domain errors
var (
	// ErrConfiguration indicates an index already exists with an incompatible shape.
	ErrConfiguration = errors.New("index configuration mismatch")

	// ErrDimensionMismatch indicates vectors in a batch do not share one length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrCountMismatch indicates the number of ids differs from the number of vectors.
	ErrCountMismatch = errors.New("id and vector count mismatch")

	// ErrArgument indicates a transform or metadata function does not fit the row shape.
	ErrArgument = errors.New("argument mismatch")

	// ErrIndexNotFound indicates the named index does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrInvalidVectorRecord indicates a VectorRecord failed validation.
	ErrInvalidVectorRecord = errors.New("invalid vector record")

	// ErrInvalidChangeEvent indicates a change event could not be decoded.
	ErrInvalidChangeEvent = errors.New("invalid change event")
)
