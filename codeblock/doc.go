// Package codeblock extracts fenced code regions from markdown together with
// the prose around them, and summarizes them for code example search.
//
// Fences are paired in document order: the first "```" opens a block, the
// second closes it, the third opens the next and so on. A trailing unmatched
// fence is ignored. All lengths and context windows count Unicode characters.
package codeblock
