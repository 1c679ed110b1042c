package search

// DefaultMatchCount is used when a caller asks for zero or fewer results.
const DefaultMatchCount = 10

// CodeQuery rewrites a natural language query into the shape of the text
// embedded for code examples.
func CodeQuery(query string) string {
	return "Code example for " + query + "\n\nSummary: Example code showing " + query
}

func normalizeMatchCount(n int) int {
	if n <= 0 {
		return DefaultMatchCount
	}
	return n
}
