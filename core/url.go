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
	"net/url"
	"regexp"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

const (
	crawledTablePrefix = "crawled_pages_"
	summaryTablePrefix = "pages_"
)

var nonIdentifierChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// DomainFromURL derives the source domain of a URL: the host (with port) when
// present, otherwise the path. Unparseable input yields "".
func DomainFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	if u.Host != "" {
		return u.Host
	}
	return u.Path
}

// TableNameForDomain returns the display table label given to a Source on
// creation: crawled_pages_ followed by the domain with '.' and '-' mapped to '_'.
func TableNameForDomain(domain string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return crawledTablePrefix + r.Replace(domain)
}

// SummaryTableName returns the label used by summary upserts that do not
// supply one: pages_ followed by the domain with every character outside
// [A-Za-z0-9_] mapped to '_'.
func SummaryTableName(domain string) string {
	return summaryTablePrefix + nonIdentifierChars.ReplaceAllString(domain, "_")
}

// DefaultSourceSummary is the placeholder summary of a newly seen domain.
func DefaultSourceSummary(domain string) string {
	return "Content from " + domain
}

// HashURL returns a fixed-size BLAKE2b digest of a URL, used to build
// per-URL key prefixes.
func HashURL(rawURL string) []byte {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(rawURL))
	return h.Sum(nil)
}
