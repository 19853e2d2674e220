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

// Package storage provides local persistence for vectorflow.
//
// It defines the repository interfaces used by the backfill and by the
// inspection tooling, and the mus-go serializers for the values kept in the
// embedded key/value store. The badger subpackage implements them on BadgerDB
// and also provides a vectorstore.Backend so the whole pipeline can run
// without a hosted index.
//
// # Usage
//
// Open an on-disk backend:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// Use in tests with in-memory storage:
//
//	backend, err := badger.OpenBackend("", true)
//
// # Thread Safety
//
// All repository implementations must be safe for concurrent use.
package storage
