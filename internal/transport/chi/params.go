package chi

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/memento/internal/domain/search/filter"
	"github.com/kailas-cloud/memento/internal/domain/search/mode"
	"github.com/kailas-cloud/memento/internal/domain/search/request"
	domtl "github.com/kailas-cloud/memento/internal/domain/timeline"
	"github.com/kailas-cloud/memento/internal/domain/upload"
)

// metadataParamPrefix introduces a metadata filter: metadata.<key>=value.
const metadataParamPrefix = "metadata."

// SearchParams defines parameters for GET /api/memory/.
type SearchParams struct {
	Query   *string   `form:"query"`
	Mode    *string   `form:"mode"`
	Lat     *float64  `form:"lat"`
	Long    *float64  `form:"long"`
	Radius  *float64  `form:"radius"`
	Start   *string   `form:"start"`
	End     *string   `form:"end"`
	City    *string   `form:"city"`
	State   *string   `form:"state"`
	Zip     *string   `form:"zip"`
	Country *string   `form:"country"`
	Tags    *[]string `form:"tags"`
	Limit   *int      `form:"limit"`
	// Metadata holds the metadata.<key> parameters, keyed by <key>.
	Metadata map[string]string `form:"-"`
}

// TimelineParams defines parameters for GET /api/memory/timeline.
type TimelineParams struct {
	Direction string `form:"direction"`
	Timestamp string `form:"timestamp"`
	Limit     *int   `form:"limit"`
	Inclusive *bool  `form:"inclusive"`
}

// UploadRequest is the body of POST /api/upload/.
type UploadRequest struct {
	Image     string         `json:"image"`
	Location  string         `json:"location,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// bindError marks a query parameter that could not be decoded.
type bindError struct {
	param string
	err   error
}

func (e *bindError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %v", e.param, e.err)
}

func (e *bindError) Unwrap() error { return e.err }

type queryBinding struct {
	name     string
	required bool
	dest     any
}

func bindQuery(q url.Values, bindings ...queryBinding) error {
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, b.required, b.name, q, b.dest); err != nil {
			return &bindError{param: b.name, err: err}
		}
	}
	return nil
}

func bindSearchParams(q url.Values) (SearchParams, error) {
	var p SearchParams
	err := bindQuery(q,
		queryBinding{name: "query", dest: &p.Query},
		queryBinding{name: "mode", dest: &p.Mode},
		queryBinding{name: "lat", dest: &p.Lat},
		queryBinding{name: "long", dest: &p.Long},
		queryBinding{name: "radius", dest: &p.Radius},
		queryBinding{name: "start", dest: &p.Start},
		queryBinding{name: "end", dest: &p.End},
		queryBinding{name: "city", dest: &p.City},
		queryBinding{name: "state", dest: &p.State},
		queryBinding{name: "zip", dest: &p.Zip},
		queryBinding{name: "country", dest: &p.Country},
		queryBinding{name: "tags", dest: &p.Tags},
		queryBinding{name: "limit", dest: &p.Limit},
	)
	if err != nil {
		return p, err
	}
	p.Metadata, err = bindMetadata(q)
	return p, err
}

// bindMetadata collects metadata.<key>=value parameters. Each key may appear once.
func bindMetadata(q url.Values) (map[string]string, error) {
	var m map[string]string
	for name, values := range q {
		key, ok := strings.CutPrefix(name, metadataParamPrefix)
		if !ok {
			continue
		}
		if len(values) != 1 {
			return nil, &bindError{param: name, err: errors.New("must be given once")}
		}
		if m == nil {
			m = make(map[string]string)
		}
		m[key] = values[0]
	}
	return m, nil
}

func bindTimelineParams(q url.Values) (TimelineParams, error) {
	var p TimelineParams
	err := bindQuery(q,
		queryBinding{name: "direction", required: true, dest: &p.Direction},
		queryBinding{name: "timestamp", required: true, dest: &p.Timestamp},
		queryBinding{name: "limit", dest: &p.Limit},
		queryBinding{name: "inclusive", dest: &p.Inclusive},
	)
	return p, err
}

// searchRequestFromParams validates search parameters into a request.
func searchRequestFromParams(p SearchParams) (request.Request, error) {
	g, err := filter.NewGeo(p.Lat, p.Long, p.Radius)
	if err != nil {
		return request.Request{}, err
	}

	start, err := optionalTime(p.Start)
	if err != nil {
		return request.Request{}, err
	}
	end, err := optionalTime(p.End)
	if err != nil {
		return request.Request{}, err
	}
	tr, err := filter.NewTimeRange(start, end)
	if err != nil {
		return request.Request{}, err
	}

	address := make(map[filter.AddressField]string, 4)
	for f, v := range map[filter.AddressField]*string{
		filter.City:    p.City,
		filter.State:   p.State,
		filter.Zip:     p.Zip,
		filter.Country: p.Country,
	} {
		if v != nil {
			address[f] = *v
		}
	}

	var tags []string
	if p.Tags != nil {
		tags = *p.Tags
	}

	set, err := filter.NewSet(g, tr, address, tags, p.Metadata)
	if err != nil {
		return request.Request{}, err
	}
	return request.New(deref(p.Query), mode.Mode(deref(p.Mode)), set, derefInt(p.Limit))
}

// cursorFromParams validates timeline parameters into a cursor.
func cursorFromParams(p TimelineParams) (domtl.Cursor, error) {
	ts, err := domtl.ParseTimestamp(p.Timestamp)
	if err != nil {
		return domtl.Cursor{}, err
	}
	inclusive := p.Inclusive != nil && *p.Inclusive
	return domtl.NewCursor(ts, domtl.Direction(p.Direction), derefInt(p.Limit), inclusive)
}

func uploadFromRequest(req UploadRequest, maxBytes int) (upload.Upload, error) {
	up, err := upload.Decode(req.Image, req.Location, req.Timestamp, maxBytes)
	if err != nil {
		return upload.Upload{}, err
	}
	if len(req.Tags) > 0 {
		up = up.WithTags(req.Tags...)
	}
	if len(req.Metadata) > 0 {
		up = up.WithMetadata(req.Metadata)
	}
	return up, nil
}

func optionalTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := domtl.ParseTimestamp(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
