// Package cache implements the two cache tiers in front of the upstream site.
//
// The source cache holds parsed records per upstream page (Locator), the
// response cache holds final client payloads per API call (RequestSignature).
// Both write JSON envelopes carrying stored_at and ttl_seconds into a
// store.Store, so remaining lifetimes can be computed even when the store
// does not expose TTLs natively.
//
// # Keys
//
// Source keys have the stable format
//
//	{prefix}:{SourceType}-{normalized locator}
//
// for example
//
//	parser-cache:HeroParser-en-us/heroes/ana
//
// Response keys are {prefix}:{METHOD} {path}?{sorted query}.
//
// # Expiry
//
// SourceCache.Get returns whatever is physically stored; callers decide the
// staleness policy through Entry.Remaining. ResponseCache.Get treats expired
// envelopes as misses.
//
// # Metrics
//
//   - overfast_cache_hits_total{cache, layer}
//   - overfast_cache_misses_total{cache}
//   - overfast_cache_writes_total{cache}
//   - overfast_cache_errors_total{cache, operation}
package cache
