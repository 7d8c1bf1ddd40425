package search

import "context"

type Repository interface {
	// SearchCampaigns returns one page of hits and the unpaged match count.
	SearchCampaigns(ctx context.Context, filter CampaignFilter) ([]CampaignHit, int64, error)
	// SearchSessions returns one page of hits, without player counts, and the
	// unpaged match count.
	SearchSessions(ctx context.Context, filter SessionFilter) ([]SessionHit, int64, error)
	// PlayerCounts tallies PLAYER participants per session. Sessions without
	// any seated player are absent from the map.
	PlayerCounts(ctx context.Context, sessionIDs []string) (map[string]PlayerCount, error)
}
