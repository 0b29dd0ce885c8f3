package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/domain/geo"
	domtl "github.com/kailas-cloud/memento/internal/domain/timeline"
	"github.com/kailas-cloud/memento/internal/domain/upload"
)

type ingestOptions struct {
	location  string
	timestamp string
	tags      []string
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	in := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest <image>",
		Short: "Caption, geocode, embed and index a local image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				up, err := in.upload(data, a.cfg.Storage.MaxUploadMB<<20)
				if err != nil {
					return err
				}
				svc, err := a.ingestService()
				if err != nil {
					return err
				}
				if _, err := a.repo.EnsureIndex(cmd.Context()); err != nil {
					return fmt.Errorf("ensure index: %w", err)
				}
				id, err := svc.Ingest(cmd.Context(), up)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&in.location, "location", "", `capture location as "lat,long"`)
	cmd.Flags().StringVar(&in.timestamp, "timestamp", "", "capture time, ISO-8601 (default: now)")
	cmd.Flags().StringSliceVar(&in.tags, "tag", nil, "tag to attach (repeatable)")
	return cmd
}

func (o *ingestOptions) upload(data []byte, maxBytes int) (upload.Upload, error) {
	var loc *geo.Point
	if strings.TrimSpace(o.location) != "" {
		p, err := geo.ParsePoint(o.location)
		if err != nil {
			return upload.Upload{}, domain.NewValidationError("location", err.Error())
		}
		loc = &p
	}
	var ts time.Time
	if o.timestamp != "" {
		var err error
		if ts, err = domtl.ParseTimestamp(o.timestamp); err != nil {
			return upload.Upload{}, err
		}
	}
	up, err := upload.New(data, loc, ts, maxBytes)
	if err != nil {
		return upload.Upload{}, err
	}
	if len(o.tags) > 0 {
		up = up.WithTags(o.tags...)
	}
	return up, nil
}
