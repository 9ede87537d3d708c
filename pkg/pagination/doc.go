// Package pagination merges every page of a paginated provider search into
// a single result.
//
// Providers disagree on page conventions: some count pages from 0 and
// report a total page count, others count from 1 or only return a "more"
// flag. The fetcher passed to FetchAll owns that contract: it reports for
// each page whether another one follows, and Config.FirstPage says where
// to start.
//
// Example usage:
//
//	fetcher := pagination.FetcherFunc[Vacancy](func(ctx context.Context, page int) (*pagination.Page[Vacancy], error) {
//		return provider.searchPage(ctx, params, page)
//	})
//	result, err := pagination.FetchAll(ctx, fetcher, pagination.DefaultConfig())
//
// Pages are fetched strictly one after another because the decision to ask
// for page n+1 depends on page n. The first failing page aborts the whole
// aggregation; its error is returned unchanged and nothing is retried.
package pagination
