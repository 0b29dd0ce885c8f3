package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/domain/search/filter"
	"github.com/kailas-cloud/memento/internal/domain/search/mode"
	"github.com/kailas-cloud/memento/internal/domain/search/request"
	domtl "github.com/kailas-cloud/memento/internal/domain/timeline"
)

type searchOptions struct {
	mode     string
	limit    int
	lat      float64
	long     float64
	radius   float64
	start    string
	end      string
	address  map[string]string
	tags     []string
	metadata map[string]string
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	so := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search [text...]",
		Short: "Search memories by text, place and time",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := so.request(cmd.Flags(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				views, err := a.searchService().Search(cmd.Context(), &req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), nonNil(views))
			})
		},
	}
	so.bind(cmd.Flags())
	return cmd
}

func (o *searchOptions) bind(f *pflag.FlagSet) {
	f.StringVar(&o.mode, "mode", string(mode.Hybrid), "hybrid, semantic or keyword")
	f.IntVar(&o.limit, "limit", request.DefaultLimit, "maximum results")
	f.Float64Var(&o.lat, "lat", 0, "geo filter latitude")
	f.Float64Var(&o.long, "long", 0, "geo filter longitude")
	f.Float64Var(&o.radius, "radius", 0, "geo filter radius in meters")
	f.StringVar(&o.start, "start", "", "earliest capture time, ISO-8601")
	f.StringVar(&o.end, "end", "", "latest capture time, ISO-8601")
	f.StringToStringVar(&o.address, "address", nil, "address filter, e.g. city=Lisbon,country=Portugal")
	f.StringSliceVar(&o.tags, "tag", nil, "tag filter (repeatable)")
	f.StringToStringVar(&o.metadata, "meta", nil, "metadata filter key=value")
}

func (o *searchOptions) request(flags *pflag.FlagSet, text string) (request.Request, error) {
	g, err := filter.NewGeo(
		changed(flags, "lat", o.lat),
		changed(flags, "long", o.long),
		changed(flags, "radius", o.radius),
	)
	if err != nil {
		return request.Request{}, err
	}

	start, err := parseOptionalTime(o.start)
	if err != nil {
		return request.Request{}, err
	}
	end, err := parseOptionalTime(o.end)
	if err != nil {
		return request.Request{}, err
	}
	tr, err := filter.NewTimeRange(start, end)
	if err != nil {
		return request.Request{}, err
	}

	address := make(map[filter.AddressField]string, len(o.address))
	for k, v := range o.address {
		address[filter.AddressField(k)] = v
	}

	set, err := filter.NewSet(g, tr, address, o.tags, o.metadata)
	if err != nil {
		return request.Request{}, err
	}
	return request.New(text, mode.Mode(o.mode), set, o.limit)
}

type timelineOptions struct {
	direction string
	timestamp string
	limit     int
	inclusive bool
}

func newTimelineCmd(opts *rootOptions) *cobra.Command {
	to := &timelineOptions{}
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "List memories captured around a point in time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, err := domtl.ParseTimestamp(to.timestamp)
			if err != nil {
				return err
			}
			cursor, err := domtl.NewCursor(ts, domtl.Direction(to.direction), to.limit, to.inclusive)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				views, err := a.timelineWalker().Walk(cmd.Context(), cursor)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), nonNil(views))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&to.direction, "direction", string(domtl.Both), "before, after or both")
	f.StringVar(&to.timestamp, "timestamp", "", "reference time, ISO-8601")
	f.IntVar(&to.limit, "limit", 0, "maximum results per side")
	f.BoolVar(&to.inclusive, "inclusive", false, "include memories at exactly the reference time")
	_ = cmd.MarkFlagRequired("timestamp")
	return cmd
}

func changed(flags *pflag.FlagSet, name string, v float64) *float64 {
	if !flags.Changed(name) {
		return nil
	}
	return &v
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := domtl.ParseTimestamp(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nonNil(views []dommem.View) []dommem.View {
	if views == nil {
		return []dommem.View{}
	}
	return views
}
