// Package pagination walks the paged Ninox records endpoint.
//
// Pages are fetched strictly in order because the end of data is only known
// after a page comes back short or empty. The paginator stops on the first of:
//   - an empty page (end of data)
//   - a page shorter than PerPage (last page)
//   - the requested limit being reached (bounded mode)
//   - a page whose first record id was already seen (the API re-served a page)
//   - MaxPages fetches (safety ceiling for feeds that never end)
//
// The last two are truncations. They are not errors: the records gathered so
// far are returned, Result.StopReason names the cause, a warning is logged
// and ninox_pagination_truncations_total is incremented.
//
// Example usage:
//
//	pager := pagination.New(ninoxClient, pagination.DefaultConfig())
//	res, err := pager.All(ctx, table, ninox.ListQuery{Updated: true})
//	if res.Truncated() {
//		// incomplete listing
//	}
package pagination
