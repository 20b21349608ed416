package dsr

import "context"

// FootprintSource reads everything one part of the platform holds about a
// user. The surrounding application registers one source per data table
// (profile, health metrics, transformation photos, mood entries, workout
// entries) when constructing the service.
type FootprintSource interface {
	// Name keys the source's records in the exported aggregate.
	Name() string
	// Collect returns all records the source holds for the user. An empty
	// slice is a valid answer; sources must not fail just because a user
	// has no data.
	Collect(ctx context.Context, userID string) ([]map[string]any, error)
}

// StaticSource is a fixed in-memory footprint source, used in tests and
// local development.
type StaticSource struct {
	SourceName string
	Records    map[string][]map[string]any
}

func (s StaticSource) Name() string { return s.SourceName }

func (s StaticSource) Collect(_ context.Context, userID string) ([]map[string]any, error) {
	return s.Records[userID], nil
}
