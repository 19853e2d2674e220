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


// Package vectorstore provides a write-only client for vector indexes.
//
// The Client validates vectors before they leave the process and delegates
// every network operation to a Backend:
//
//   - EnsureIndex creates an index if it is missing and rejects an existing
//     index whose dimensionality differs
//   - Upsert writes a single record
//   - BulkUpsert writes a batch of records in one call
//
// Each Client method issues at most one Backend call per step (describe,
// create, upsert). There are no retries; backend errors are returned to the
// caller unchanged.
//
// # Backends
//
//   - vectorstore/pinecone: hosted Pinecone indexes
//   - storage/badger: embedded BadgerDB, used for local runs and tests
package vectorstore
