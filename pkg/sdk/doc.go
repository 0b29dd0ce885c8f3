// Package memento provides an in-process Go client for the memento photo
// memory index.
//
// The client talks to the search index directly, without the HTTP service:
//
//	client, _ := memento.New(ctx,
//	    memento.WithElasticsearch([]string{"http://localhost:9200"}, "", ""),
//	    memento.WithEmbedder(embedder),
//	    memento.WithVectorDimensions(1536),
//	)
//	defer client.Close()
//
//	hits, _ := client.Search(ctx, memento.Query{
//	    Text: "sunset over the bay",
//	    Near: &memento.GeoFilter{Lat: 37.33, Lon: -122.03, RadiusMeters: 5000},
//	})
//	around, _ := client.Timeline(ctx, hits[0].Timestamp, memento.Both, 5, false)
//
// Pre-captioned memories can be indexed with Put; image captioning and OCR
// belong to the HTTP service's upload endpoint.
package memento
