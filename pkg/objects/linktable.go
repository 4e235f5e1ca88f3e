package objects

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/h5works/restfs/internal/codec"
	"github.com/h5works/restfs/pkg/errstack"
)

// linkPageSize is the page size requested from the server when
// enumerating a group's links. A variable so tests can force
// pagination with small groups.
var linkPageSize = 1000

// LinkTable is an ordered snapshot of a group's immediate links,
// insertion order matching the server-reported order. Tables support
// the index-based iteration APIs; they are rebuilt, never
// incrementally updated, when the owning group's link set changes.
type LinkTable struct {
	group   *Handle
	entries []Link
}

// BuildLinkTable enumerates a group's links into a fresh table.
//
// Enumeration may take several paginated requests. Construction is
// all-or-nothing: if any page fails, pages already fetched are
// discarded, the error is CantBuildLinkTable, and any previously built
// table for the group remains valid and untouched.
func (d *Domain) BuildLinkTable(ctx context.Context, group *Handle) (*LinkTable, error) {
	const op = "objects.BuildLinkTable"
	if err := group.check(op); err != nil {
		return nil, err
	}

	var entries []Link
	marker := ""
	for {
		page, err := d.fetchLinkPage(ctx, group, marker)
		if err != nil {
			return nil, errstack.Push(&errstack.Record{
				Major:   errstack.ObjectError,
				Minor:   errstack.CantBuildLinkTable,
				Op:      op,
				Message: fmt.Sprintf("link enumeration failed for group %s", group.uri),
				Cause:   err,
			})
		}

		for i := range page {
			link, err := linkFromBody(&page[i])
			if err != nil {
				return nil, errstack.Push(&errstack.Record{
					Major:   errstack.ObjectError,
					Minor:   errstack.CantBuildLinkTable,
					Op:      op,
					Message: fmt.Sprintf("malformed link entry in group %s", group.uri),
					Cause:   err,
				})
			}
			entries = append(entries, link)
		}

		if len(page) < linkPageSize {
			break
		}
		marker = page[len(page)-1].Title
	}

	return &LinkTable{group: group, entries: entries}, nil
}

// fetchLinkPage requests one page of the listing, starting after
// marker when non-empty.
func (d *Domain) fetchLinkPage(ctx context.Context, group *Handle, marker string) ([]codec.LinkBody, error) {
	query := url.Values{}
	query.Set("Limit", strconv.Itoa(linkPageSize))
	if marker != "" {
		query.Set("Marker", marker)
	}

	resourcePath := fmt.Sprintf("/groups/%s/links", group.uri)
	_, body, err := d.sess.Exchange(ctx, http.MethodGet, resourcePath, query, nil)
	if err != nil {
		return nil, err
	}
	return codec.DecodeLinkList(body)
}

// Len returns the number of entries.
func (t *LinkTable) Len() int { return len(t.entries) }

// Get returns the entry at the given insertion-order index.
func (t *LinkTable) Get(index int) (Link, error) {
	if index < 0 || index >= len(t.entries) {
		return Link{}, errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.CantIterate,
			Op:      "objects.LinkTable.Get",
			Message: fmt.Sprintf("index %d out of range [0,%d)", index, len(t.entries)),
		})
	}
	return t.entries[index], nil
}

// LinkVisitor is invoked for each entry during iteration. Returning
// stop=true ends the iteration normally; returning an error aborts it.
type LinkVisitor func(index int, link Link) (stop bool, err error)

// Iterate visits entries in insertion order and returns the index the
// visitor stopped at, or -1 if the full table was visited. A visitor
// error surfaces as CantIterate.
func (t *LinkTable) Iterate(visitor LinkVisitor) (int, error) {
	const op = "objects.LinkTable.Iterate"
	for i, link := range t.entries {
		stop, err := visitor(i, link)
		if err != nil {
			return i, errstack.Push(&errstack.Record{
				Major:   errstack.ObjectError,
				Minor:   errstack.CantIterate,
				Op:      op,
				Message: fmt.Sprintf("visitor aborted at index %d", i),
				Cause:   err,
			})
		}
		if stop {
			return i, nil
		}
	}
	return -1, nil
}
