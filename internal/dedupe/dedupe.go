package dedupe

// Package dedupe provides shared singleflight groups used to collapse
// concurrent identical reads. Only one lookup runs for a given key while
// other callers wait for the result.

import "golang.org/x/sync/singleflight"

// ProfileGroup deduplicates stat profile resolution keyed by
// keys.PlayerKey.
var ProfileGroup singleflight.Group

// LeaderboardGroup deduplicates leaderboard queries keyed by
// keys.LeaderboardKey.
var LeaderboardGroup singleflight.Group
