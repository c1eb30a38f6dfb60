// Package fetch resolves fragment content.
//
// Inline fragments resolve to their own text without any I/O. Remote
// fragments are retrieved over HTTP(S) or from file:// locations, with a
// cache-busting query parameter carrying the current time in milliseconds so
// that every page load sees fresh markup:
//
//	https://example.com/header.nh?timestamp=1760799600000
//
// Resolution never fails a run. A failed retrieval is logged and returned as
// a failed nicehtml.Result so the caller can skip the fragment.
package fetch
