package knowledge

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RetrieverOptions tunes result capping. Zero values select defaults.
type RetrieverOptions struct {
	// MaxResultsPerQuery caps what each shaped query may contribute.
	MaxResultsPerQuery int

	// MaxItems caps the merged, re-ranked result set.
	MaxItems int
}

func (o RetrieverOptions) withDefaults() RetrieverOptions {
	if o.MaxResultsPerQuery <= 0 {
		o.MaxResultsPerQuery = 3
	}
	if o.MaxItems <= 0 {
		o.MaxItems = 10
	}
	return o
}

// Retriever shapes queries from a log context, fans them out to the
// knowledge store, and merges the results into one re-ranked set.
type Retriever struct {
	store Store
	opts  RetrieverOptions
}

// NewRetriever creates a retriever over the given store. A nil store is
// allowed and behaves as permanently unavailable.
func NewRetriever(store Store, opts RetrieverOptions) *Retriever {
	return &Retriever{store: store, opts: opts.withDefaults()}
}

// Retrieve returns re-ranked knowledge items for the log context. When the
// store is unreachable it returns an empty set and unavailable=true rather
// than an error; retrieval never fails the overall analysis. Optional
// component health scores bias queries toward the weakest components.
func (r *Retriever) Retrieve(ctx context.Context, logCtx *LogContext, health map[string]float64) (items []*Item, unavailable bool) {
	if r.store == nil {
		return []*Item{}, true
	}

	queries := GenerateQueries(logCtx)
	if len(health) > 0 {
		queries = reorderByHealth(queries, health)
	}
	if len(queries) == 0 {
		return []*Item{}, false
	}

	type scored struct {
		item    *Item
		blended float64
	}

	var mu sync.Mutex
	merged := make(map[string]scored)
	failures := 0

	// Queries are independent and aggregation is commutative, so they
	// run concurrently without changing the ranked output.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, query := range queries {
		g.Go(func() error {
			results, err := r.store.Search(gctx, query.Text, query.Component, r.opts.MaxResultsPerQuery)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				return nil
			}
			for _, item := range results {
				blended := item.Score * query.Priority.weight()
				key := item.Source + "#" + item.Section
				if existing, ok := merged[key]; !ok || blended > existing.blended {
					merged[key] = scored{item: item, blended: blended}
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(merged) == 0 {
		return []*Item{}, failures == len(queries)
	}

	items = make([]*Item, 0, len(merged))
	for _, s := range merged {
		s.item.Score = s.blended
		items = append(items, s.item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Source+items[i].Section < items[j].Source+items[j].Section
	})

	if len(items) > r.opts.MaxItems {
		items = items[:r.opts.MaxItems]
	}
	return items, false
}

// reorderByHealth moves queries for the unhealthiest components to the
// front within each priority band.
func reorderByHealth(queries []Query, health map[string]float64) []Query {
	sort.SliceStable(queries, func(i, j int) bool {
		if queries[i].Priority != queries[j].Priority {
			return queries[i].Priority > queries[j].Priority
		}
		return componentHealth(health, queries[i].Component) < componentHealth(health, queries[j].Component)
	})
	return queries
}

func componentHealth(health map[string]float64, component string) float64 {
	if component == "" {
		return 1.0
	}
	if score, ok := health[component]; ok {
		return score
	}
	return 1.0
}
