package service

import "context"

// SummaryCache stores serialized report summaries. Implementations must
// tolerate being unavailable: a miss is always a safe answer.
//
// Get reports the cache generation it looked under, hit or miss. Set only
// stores under that generation, so a summary computed before an Invalidate
// can never be read back after it.
type SummaryCache interface {
	Get(ctx context.Context, key string) (value []byte, gen string, ok bool)
	Set(ctx context.Context, gen, key string, value []byte)
	// Invalidate drops every cached summary.
	Invalidate(ctx context.Context)
}

// noopCache is used when no cache is configured.
type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, string, bool) { return nil, "", false }
func (noopCache) Set(context.Context, string, string, []byte)        {}
func (noopCache) Invalidate(context.Context)                         {}

func orNoop(c SummaryCache) SummaryCache {
	if c == nil {
		return noopCache{}
	}
	return c
}
