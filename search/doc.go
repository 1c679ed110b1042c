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


// Package search provides semantic search over ingested chunks and code examples.
//
// The Searcher embeds a query with the same adapter used during ingestion and
// delegates ranking to the store. Code example queries are rewritten into the
// shape of the text embedded for code examples before they are embedded.
//
// Search never fails: embedding or store errors are logged and produce an
// empty result list.
package search
