// Package catalog holds the fetched song catalog and the views built on top of it.
//
// [Cache] is the single source of truth used to resolve search results. It is
// replaced wholesale on every successful fetch and never merged; readers always
// observe either the previous or the new complete snapshot.
//
// [Pager] slices the cached entries into fixed-size pages for the gallery and
// [Find] ranks entries against a free-text query.
package catalog
