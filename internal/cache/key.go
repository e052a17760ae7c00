package cache

import (
	"fmt"
	"net/url"
)

// Cache keys are deterministic composites of resource and request
// parameters. Every distinct (page, pageSize, search) combination gets
// its own entry, so stepping back to a previously visited combination
// serves from cache until invalidated.

const linksResource = "links"

// ListKey is the cache key of one page of the link collection.
func ListKey(page, pageSize int, search string) string {
	return fmt.Sprintf("%s?page=%d&size=%d&q=%s",
		linksResource, page, pageSize, url.QueryEscape(search))
}

// ListPrefix matches every cached page/search combination of the link
// collection. Mutations invalidate by this prefix.
func ListPrefix() string {
	return linksResource + "?"
}

// LinkKey is the cache key of a single link's detail record.
func LinkKey(id int64) string {
	return fmt.Sprintf("%s/id/%d", linksResource, id)
}

// StatsKey is the cache key of a link's access statistics.
func StatsKey(shortCode string) string {
	return fmt.Sprintf("%s/stats/%s", linksResource, url.PathEscape(shortCode))
}
