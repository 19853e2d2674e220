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

// Package cdc decodes change-data-capture events and maps rows to documents.
//
// Events arrive as JSON produced by a Debezium connector with the unwrap
// transform and delete.handling.mode=rewrite, so every row carries a
// __deleted flag. DecodeChangeEvent turns the raw message into a
// core.ChangeEvent, and a Mapper applies caller supplied Transform and
// MetadataExtractor functions to the row.
//
// # Usage
//
//	mapper, err := cdc.NewMapper(
//	    cdc.ConcatColumns(" ", "name", "description"),
//	    cdc.WithMetadata(cdc.ColumnValues("category")),
//	)
//
//	event, err := cdc.DecodeChangeEvent(msg.Value)
//	doc, tags, ok, err := mapper.Map(event)
package cdc
