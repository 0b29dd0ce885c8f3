package memento

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/memento/internal/domain/search/filter"
	"github.com/kailas-cloud/memento/internal/domain/search/mode"
	"github.com/kailas-cloud/memento/internal/domain/search/request"
	domtl "github.com/kailas-cloud/memento/internal/domain/timeline"
)

// Search runs a memory search and returns matches, best first.
func (c *Client) Search(ctx context.Context, q Query) (_ []Memory, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	req, err := toRequest(q)
	if err != nil {
		return nil, err
	}
	views, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return memoriesFromViews(views), nil
}

// Get returns one memory by ID. A missing memory yields ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (_ Memory, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get", start, err) }()

	v, err := c.searchSvc.Get(ctx, id)
	if err != nil {
		return Memory{}, fmt.Errorf("get: %w", err)
	}
	return memoryFromView(&v), nil
}

// Timeline returns up to limit memories on the given side of ref in
// chronological order. Both returns the memories before ref followed by
// those at or after it. A failing side contributes nothing.
func (c *Client) Timeline(
	ctx context.Context, ref time.Time, dir Direction, limit int, inclusive bool,
) (_ []Memory, err error) {
	start := time.Now()
	defer func() { c.obs.observe("timeline", start, err) }()

	cursor, err := domtl.NewCursor(ref, domtl.Direction(dir), limit, inclusive)
	if err != nil {
		return nil, err
	}
	views, err := c.walker.Walk(ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}
	return memoriesFromViews(views), nil
}

func toRequest(q Query) (request.Request, error) {
	var g *filter.Geo
	if q.Near != nil {
		var err error
		if g, err = filter.NewGeo(&q.Near.Lat, &q.Near.Lon, &q.Near.RadiusMeters); err != nil {
			return request.Request{}, err
		}
	}

	tr, err := filter.NewTimeRange(q.Start, q.End)
	if err != nil {
		return request.Request{}, err
	}

	address := make(map[filter.AddressField]string, 4)
	for f, v := range map[filter.AddressField]string{
		filter.City:    q.City,
		filter.State:   q.State,
		filter.Zip:     q.Zip,
		filter.Country: q.Country,
	} {
		if v != "" {
			address[f] = v
		}
	}

	set, err := filter.NewSet(g, tr, address, q.Tags, q.Metadata)
	if err != nil {
		return request.Request{}, err
	}
	return request.New(q.Text, mode.Mode(q.Mode), set, q.Limit)
}
