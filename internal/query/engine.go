package query

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"docmanager/internal/cursor"
	"docmanager/internal/model"
	"docmanager/internal/store"
)

// Package query implements the cross-partition paginated listing over the
// status-partitioned record store. A specific-status listing is a plain
// partition scan; the "all" listing fans out one query per partition, merges
// the results into a single globally ordered page, and issues a composite
// cursor so the next page can resume every partition where it left off.

// ErrInvalidFilter is returned when the status filter is neither "all" nor a
// known status value.
var ErrInvalidFilter = errors.New("invalid status filter")

const (
	// PageSize is the fixed number of documents per page.
	PageSize = 10

	// overFetchFactor determines how many candidates each partition
	// contributes to the all-status merge. Fetching only one page per
	// partition could starve a partition whose recent items interleave
	// tightly with another's; over-fetching bounds that risk while staying
	// constant in the number of partitions.
	overFetchFactor = 10
)

// Page is one page of a listing.
type Page struct {
	Items      []model.Document `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// Engine orchestrates partition queries against the record store.
type Engine struct {
	store store.RecordStore
}

// NewEngine constructs a query engine over the given record store.
func NewEngine(st store.RecordStore) *Engine {
	return &Engine{store: st}
}

// List returns one page for the given filter. filter is either a status value
// or model.StatusAll. rawCursor is empty for the first page, otherwise a
// cursor previously issued under the same filter mode; replaying a cursor
// under the other mode fails with cursor.ErrInvalidCursor.
func (e *Engine) List(ctx context.Context, filter string, rawCursor string) (*Page, error) {
	if filter == model.StatusAll {
		return e.listAll(ctx, rawCursor)
	}
	status := model.Status(filter)
	if !status.Valid() {
		return nil, ErrInvalidFilter
	}
	return e.listByStatus(ctx, status, rawCursor)
}

// listByStatus delegates to a single descending partition scan.
func (e *Engine) listByStatus(ctx context.Context, status model.Status, rawCursor string) (*Page, error) {
	var startKey *store.ContinuationKey
	if rawCursor != "" {
		c, err := cursor.DecodeSingle(rawCursor)
		if err != nil {
			return nil, err
		}
		key := c.Key
		startKey = &key
	}

	result, err := e.store.QueryByStatus(ctx, status, PageSize, startKey, true)
	if err != nil {
		return nil, fmt.Errorf("query partition %s: %w", status, err)
	}

	page := &Page{Items: result.Items}
	if result.NextKey != nil {
		page.NextCursor = cursor.EncodeSingle(cursor.Single{Key: *result.NextKey})
	}
	return page, nil
}

// listAll queries every status partition concurrently and merges the results
// into one globally ordered page.
//
// There is no native scan across partitions in global order, so each
// partition is over-fetched, items at or above the previous page's watermark
// are dropped (over-fetching would otherwise re-emit rows near the page
// boundary), and the union is re-sorted and truncated. The next cursor
// combines the last emitted item's position with each partition's own
// continuation key.
func (e *Engine) listAll(ctx context.Context, rawCursor string) (*Page, error) {
	var prev cursor.All
	hasWatermark := false
	if rawCursor != "" {
		c, err := cursor.DecodeAll(rawCursor)
		if err != nil {
			return nil, err
		}
		prev = c
		hasWatermark = true
	}

	statuses := model.AllStatuses()
	results := make([]*store.QueryPage, len(statuses))

	// One query per partition, full barrier: every partition is awaited even
	// if another has already failed, and any failure discards the whole page.
	var g errgroup.Group
	for i, status := range statuses {
		g.Go(func() error {
			var startKey *store.ContinuationKey
			if key, ok := prev.Keys[status]; ok {
				startKey = &key
			}
			result, err := e.store.QueryByStatus(ctx, status, PageSize*overFetchFactor, startKey, true)
			if err != nil {
				return fmt.Errorf("query partition %s: %w", status, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]model.Document, 0, PageSize*overFetchFactor)
	for _, result := range results {
		for _, item := range result.Items {
			if hasWatermark && !beforeWatermark(item, prev) {
				continue
			}
			merged = append(merged, item)
		}
	}

	sort.Slice(merged, func(a, b int) bool {
		if !merged[a].CreatedAt.Equal(merged[b].CreatedAt) {
			return merged[a].CreatedAt.After(merged[b].CreatedAt)
		}
		return merged[a].ID > merged[b].ID
	})

	unionLen := len(merged)
	if unionLen > PageSize {
		merged = merged[:PageSize]
	}

	// Next watermark: the last emitted item, or the previous watermark
	// unchanged when every candidate was filtered out.
	next := cursor.All{
		Watermark:   prev.Watermark,
		WatermarkID: prev.WatermarkID,
		Keys:        make(map[model.Status]store.ContinuationKey),
	}
	if len(merged) > 0 {
		last := merged[len(merged)-1]
		next.Watermark = last.CreatedAt
		next.WatermarkID = last.ID
	}

	// Each partition's resume key advances only to its last emitted item.
	// Resuming at the raw fetch position instead would silently skip rows
	// that were over-fetched this page but cut off by the truncation.
	lastEmitted := make(map[model.Status]store.ContinuationKey)
	for _, item := range merged {
		lastEmitted[item.Status] = store.ContinuationKey{CreatedAt: item.CreatedAt, ID: item.ID}
	}

	hasMore := unionLen > PageSize
	for i, status := range statuses {
		result := results[i]
		leftover := false
		for _, item := range result.Items {
			if hasWatermark && !beforeWatermark(item, prev) {
				continue
			}
			if beforeWatermark(item, next) {
				leftover = true
				break
			}
		}
		if !leftover && result.NextKey == nil {
			continue
		}
		hasMore = true
		if key, ok := lastEmitted[status]; ok {
			next.Keys[status] = key
		} else if key, ok := prev.Keys[status]; ok {
			// Nothing emitted from this partition this page; its previous
			// resume position still stands.
			next.Keys[status] = key
		}
		// A partition that never emitted anything has no key and restarts
		// from its newest row; the watermark filter drops nothing there
		// because none of its rows have been emitted.
	}

	page := &Page{Items: merged}
	if hasMore {
		page.NextCursor = cursor.EncodeAll(next)
	}
	return page, nil
}

// beforeWatermark reports whether the item sorts strictly after the watermark
// position in the descending (created-at, id) order, i.e. it has not been
// emitted by a previous page. Ties on created-at are broken by id so equal
// timestamps paginate deterministically.
func beforeWatermark(item model.Document, c cursor.All) bool {
	if item.CreatedAt.Before(c.Watermark) {
		return true
	}
	return item.CreatedAt.Equal(c.Watermark) && item.ID < c.WatermarkID
}
