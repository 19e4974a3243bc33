package browser

import (
	"context"
	"net/url"
	"strconv"

	"docsync/internal/store"
)

// changesPageSize bounds a single contentChanges request; the window can span
// several pages.
const changesPageSize = 100

// changeIterator is the one-shot cursor over a changelog window. Pages are
// fetched lazily; once drained (or failed) the iterator is spent.
type changeIterator struct {
	client *Client
	ctx    context.Context
	url    string

	nextToken string
	remaining int64
	hasMore   bool

	buffer []store.ChangeEntry
	pos    int
	err    error
	done   bool
}

var _ store.ChangeIterator = (*changeIterator)(nil)

func (it *changeIterator) Next() (store.ChangeEntry, bool) {
	for {
		if it.pos < len(it.buffer) {
			e := it.buffer[it.pos]
			it.pos++
			return e, true
		}
		if it.done || it.err != nil {
			return store.ChangeEntry{}, false
		}
		if !it.hasMore || it.remaining <= 0 {
			it.done = true
			return store.ChangeEntry{}, false
		}
		it.fetchPage()
	}
}

func (it *changeIterator) Err() error {
	return it.err
}

func (it *changeIterator) fetchPage() {
	pageSize := it.remaining
	if pageSize > changesPageSize {
		pageSize = changesPageSize
	}

	var page struct {
		Objects []struct {
			Object cmisObject `json:"object"`
		} `json:"objects"`
		HasMoreItems   bool   `json:"hasMoreItems"`
		ChangeLogToken string `json:"changeLogToken"`
	}
	q := url.Values{
		"cmisselector":       {"contentChanges"},
		"changeLogToken":     {it.nextToken},
		"maxItems":           {strconv.FormatInt(pageSize, 10)},
		"includeProperties":  {"true"},
		"succinctProperties": {"true"},
	}
	if err := it.client.getJSON(it.ctx, it.url, q, &page); err != nil {
		it.err = err
		it.done = true
		return
	}

	entries := make([]store.ChangeEntry, 0, len(page.Objects))
	for _, obj := range page.Objects {
		entry := store.ChangeEntry{}
		entry.ObjectID, _ = obj.Object.SuccinctProperties[store.PropObjectID].(string)
		if obj.Object.ChangeEventInfo != nil {
			entry.Type = store.ChangeType(obj.Object.ChangeEventInfo.ChangeType)
		}
		entry.ID = entry.ObjectID + "@" + it.nextToken
		entries = append(entries, entry)
	}

	it.buffer = entries
	it.pos = 0
	it.remaining -= int64(len(entries))
	it.hasMore = page.HasMoreItems && len(entries) > 0
	if page.ChangeLogToken != "" {
		it.nextToken = page.ChangeLogToken
	}
	if len(entries) == 0 {
		it.done = true
	}
}
