package messaging

import "context"

// placeholderFilter drops the provider's own search-endpoint
// placeholder record. Some providers answer an empty search with a
// single profile whose provider-id equals the search endpoint's
// sentinel id; that is an adapter artifact, not a candidate, and it
// must never reach the sourcing pipeline.
type placeholderFilter struct {
	Provider
	sentinelID string
}

// NewPlaceholderFilter wraps p so single-record search results whose
// provider-id equals sentinelID are treated as empty.
func NewPlaceholderFilter(p Provider, sentinelID string) Provider {
	if sentinelID == "" {
		return p
	}
	return &placeholderFilter{Provider: p, sentinelID: sentinelID}
}

func (f *placeholderFilter) SearchProfiles(ctx context.Context, query string, limit int) ([]Profile, error) {
	out, err := f.Provider.SearchProfiles(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(out) == 1 && out[0].ProviderID == f.sentinelID {
		return nil, nil
	}
	return out, nil
}
