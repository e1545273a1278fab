package utorrent

import (
	"golang.org/x/exp/slices"
)

// Apply folds an incremental update into the snapshot and returns a new one.
// The receiver is not modified.
func (l TorrentList) Apply(update TorrentListUpdate) TorrentList {
	next := TorrentList{
		Build:   update.Build,
		Labels:  slices.Clone(update.Labels),
		CacheID: update.CacheID,
	}

	if update.Labels == nil {
		next.Labels = slices.Clone(l.Labels)
	}

	if update.FullUpdate {
		next.Torrents = slices.Clone(update.Changed)
		return next
	}

	torrents := slices.Clone(l.Torrents)
	torrents = slices.DeleteFunc(torrents, func(t Torrent) bool {
		return slices.Contains(update.Removed, t.Hash)
	})

	for _, changed := range update.Changed {
		idx := slices.IndexFunc(torrents, func(t Torrent) bool { return t.Hash == changed.Hash })
		if idx >= 0 {
			torrents[idx] = changed
			continue
		}
		torrents = append(torrents, changed)
	}

	next.Torrents = torrents

	return next
}

// Torrent looks up a torrent by hash.
func (l TorrentList) Torrent(hash string) (Torrent, bool) {
	idx := slices.IndexFunc(l.Torrents, func(t Torrent) bool { return t.Hash == hash })
	if idx < 0 {
		return Torrent{}, false
	}

	return l.Torrents[idx], true
}

// Label looks up a label by name.
func (l TorrentList) Label(name string) (Label, bool) {
	idx := slices.IndexFunc(l.Labels, func(label Label) bool { return label.Name == name })
	if idx < 0 {
		return Label{}, false
	}

	return l.Labels[idx], true
}
