// Package tilecache fetches, decodes and caches source elevation tiles.
//
// Decoded tiles live in a capacity-bounded LRU that owns one reference per
// tile and releases it on eviction. Locators whose fetch or decode failed are
// remembered in a second, size- and time-bounded cache so that a missing
// neighbor is not requested again for every tile that borders it.
//
// A tile returned by Get carries a reference owned by the caller, who must
// Release it when done.
package tilecache
