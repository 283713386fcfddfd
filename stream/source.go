// Package stream turns a blob store of generated bundle files into an
// ordered stream of decoded bundles, delivered in batches so that memory
// use stays proportional to the batch size rather than the container.
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/rs/zerolog"

	"github.com/gofhir/loader/blob"
)

// SourceBundle is one decoded bundle pulled from the store.
type SourceBundle struct {
	// Name is the object name the bundle was read from
	Name string

	// Doc is the decoded bundle document
	Doc map[string]any
}

// Batch is a group of bundles downloaded together. Err is set when the
// stream terminates abnormally; a batch with Err carries no bundles.
type Batch struct {
	Bundles []SourceBundle
	Err     error
}

// Source streams bundles out of a blob store.
type Source struct {
	store     blob.Store
	batchSize int
	log       zerolog.Logger

	// skipped counts objects dropped during the current stream
	skipped int
}

// NewSource creates a source reading from store in batches of batchSize.
func NewSource(store blob.Store, batchSize int, log zerolog.Logger) *Source {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Source{store: store, batchSize: batchSize, log: log}
}

// Skipped returns how many objects the last Stream call dropped because
// they were not decodable transaction material.
func (s *Source) Skipped() int {
	return s.skipped
}

// isBundle sniffs the resourceType without decoding the whole document.
func isBundle(data []byte) bool {
	rt, err := jsonparser.GetString(data, "resourceType")
	return err == nil && rt == "Bundle"
}

// Stream lists the store once and emits its bundles in batches over the
// returned channel. The next batch is not downloaded until the previous
// one has been received, so consumers control the download pace. The
// channel is closed after the final batch.
func (s *Source) Stream(ctx context.Context) <-chan Batch {
	out := make(chan Batch)
	s.skipped = 0

	go func() {
		defer close(out)

		objects, err := s.store.List(ctx)
		if err != nil {
			select {
			case out <- Batch{Err: fmt.Errorf("listing source store: %w", err)}:
			case <-ctx.Done():
			}
			return
		}

		s.log.Info().Int("objects", len(objects)).Int("batch_size", s.batchSize).
			Msg("streaming source bundles")

		for start := 0; start < len(objects); start += s.batchSize {
			end := start + s.batchSize
			if end > len(objects) {
				end = len(objects)
			}

			batch := Batch{Bundles: make([]SourceBundle, 0, end-start)}
			for _, obj := range objects[start:end] {
				if ctx.Err() != nil {
					// The consumer may already be gone; never block on
					// the way out.
					select {
					case out <- Batch{Err: ctx.Err()}:
					default:
					}
					return
				}

				data, err := s.store.Download(ctx, obj.Name)
				if err != nil {
					s.log.Warn().Err(err).Str("object", obj.Name).Msg("skipping undownloadable object")
					s.skipped++
					continue
				}
				if !isBundle(data) {
					s.log.Debug().Str("object", obj.Name).Msg("skipping non-bundle object")
					s.skipped++
					continue
				}

				var doc map[string]any
				if err := json.Unmarshal(data, &doc); err != nil {
					s.log.Warn().Err(err).Str("object", obj.Name).Msg("skipping undecodable object")
					s.skipped++
					continue
				}

				batch.Bundles = append(batch.Bundles, SourceBundle{Name: obj.Name, Doc: doc})
			}

			if len(batch.Bundles) == 0 {
				continue
			}

			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
