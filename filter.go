package utorrent

import (
	"cmp"
	"strings"

	"golang.org/x/exp/slices"
)

type TorrentFilter string

const (
	TorrentFilterAll TorrentFilter = "all"

	// Torrent is started and not paused
	TorrentFilterStarted TorrentFilter = "started"

	TorrentFilterPaused TorrentFilter = "paused"

	// Torrent is neither started nor queued
	TorrentFilterStopped TorrentFilter = "stopped"

	// Torrent waits in the queue
	TorrentFilterQueued TorrentFilter = "queued"

	TorrentFilterChecking TorrentFilter = "checking"

	TorrentFilterError TorrentFilter = "error"

	// Torrent is running and has not finished downloading
	TorrentFilterDownloading TorrentFilter = "downloading"

	// Torrent is running and has finished downloading
	TorrentFilterSeeding TorrentFilter = "seeding"

	TorrentFilterCompleted TorrentFilter = "completed"
)

type TorrentFilterOptions struct {
	Filter  TorrentFilter
	Label   string
	Hashes  []string
	Sort    string
	Reverse bool
	Limit   int
	Offset  int
}

// FilterTorrents returns the torrents matching options, sorted and paged. The
// input slice is left untouched.
func FilterTorrents(torrents []Torrent, options TorrentFilterOptions) []Torrent {
	result := make([]Torrent, 0, len(torrents))
	for _, torrent := range torrents {
		if matchesTorrentFilter(torrent, options) {
			result = append(result, torrent)
		}
	}

	return applyTorrentFilterOptions(result, options)
}

// matchesTorrentFilter checks if a torrent matches the given filter options
func matchesTorrentFilter(torrent Torrent, options TorrentFilterOptions) bool {
	if len(options.Hashes) > 0 && !slices.ContainsFunc(options.Hashes, func(h string) bool {
		return strings.EqualFold(h, torrent.Hash)
	}) {
		return false
	}
	if options.Label != "" && torrent.Label != options.Label {
		return false
	}
	if options.Filter != "" && !matchesStatusFilter(torrent, options.Filter) {
		return false
	}
	return true
}

func matchesStatusFilter(torrent Torrent, filter TorrentFilter) bool {
	s := torrent.Status
	running := s.Started && !s.Paused

	switch filter {
	case TorrentFilterAll:
		return true
	case TorrentFilterStarted:
		return running
	case TorrentFilterPaused:
		return s.Paused
	case TorrentFilterStopped:
		return !s.Started && !s.Queued
	case TorrentFilterQueued:
		return s.Queued && !s.Started
	case TorrentFilterChecking:
		return s.Checking
	case TorrentFilterError:
		return s.Error
	case TorrentFilterDownloading:
		return running && !torrent.IsCompleted()
	case TorrentFilterSeeding:
		return running && torrent.IsCompleted()
	case TorrentFilterCompleted:
		return torrent.IsCompleted()
	default:
		return false
	}
}

// applyTorrentFilterOptions applies sorting, reverse, limit, and offset to torrents
func applyTorrentFilterOptions(torrents []Torrent, options TorrentFilterOptions) []Torrent {
	applyTorrentSorting(torrents, options.Sort, options.Reverse)

	if options.Offset > 0 || options.Limit > 0 {
		start := options.Offset
		if start >= len(torrents) {
			torrents = torrents[:0]
		} else {
			end := len(torrents)
			if options.Limit > 0 && start+options.Limit < end {
				end = start + options.Limit
			}
			torrents = torrents[start:end]
		}
	}

	return torrents
}

var torrentSortKeys = map[string]func(a, b Torrent) int{
	"name":      func(a, b Torrent) int { return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) },
	"size":      func(a, b Torrent) int { return cmp.Compare(a.Size, b.Size) },
	"progress":  func(a, b Torrent) int { return cmp.Compare(a.PercentProgress, b.PercentProgress) },
	"ratio":     func(a, b Torrent) int { return cmp.Compare(a.Ratio, b.Ratio) },
	"eta":       func(a, b Torrent) int { return cmp.Compare(a.ETA, b.ETA) },
	"queue":     func(a, b Torrent) int { return cmp.Compare(a.QueueOrder, b.QueueOrder) },
	"added":     func(a, b Torrent) int { return cmp.Compare(a.DateAdded, b.DateAdded) },
	"completed": func(a, b Torrent) int { return cmp.Compare(a.DateCompleted, b.DateCompleted) },
	"dlspeed":   func(a, b Torrent) int { return cmp.Compare(a.DownloadSpeed, b.DownloadSpeed) },
	"upspeed":   func(a, b Torrent) int { return cmp.Compare(a.UploadSpeed, b.UploadSpeed) },
}

// applyTorrentSorting sorts in place by key with the hash as tie-breaker.
// Unknown keys leave the daemon's order.
func applyTorrentSorting(torrents []Torrent, key string, reverse bool) {
	compare, ok := torrentSortKeys[key]
	if !ok {
		if reverse {
			slices.Reverse(torrents)
		}
		return
	}

	slices.SortStableFunc(torrents, func(a, b Torrent) int {
		c := compare(a, b)
		if c == 0 {
			c = cmp.Compare(a.Hash, b.Hash)
		}
		if reverse {
			return -c
		}
		return c
	})
}
