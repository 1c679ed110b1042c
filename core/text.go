package core

import "unicode/utf8"

// Head returns the first n characters of s. Characters are Unicode code points.
func Head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Tail returns the last n characters of s.
func Tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	total := utf8.RuneCountInString(s)
	if total <= n {
		return s
	}
	skip := total - n
	count := 0
	for i := range s {
		if count == skip {
			return s[i:]
		}
		count++
	}
	return ""
}

// CharCount returns the number of Unicode code points in s.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
