// Package report renders crawl results.
//
// JSONWriter emits the graph in the loader's format, FullJSONWriter wraps
// it with run metadata, MarkdownWriter produces a shareable summary and
// SimpleWriter a plain text one for the terminal. All of them implement
// Writer and accept the results of one or more crawls.
package report
