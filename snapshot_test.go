package utorrent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTorrentList_Apply(t *testing.T) {
	base := TorrentList{
		Build:   1,
		Labels:  []Label{{Name: "tv", TorrentCount: 2}},
		CacheID: "1",
		Torrents: []Torrent{
			{Hash: "a", Name: "A", PercentProgress: 100},
			{Hash: "b", Name: "B"},
			{Hash: "c", Name: "C"},
		},
	}

	t.Run("partial", func(t *testing.T) {
		next := base.Apply(TorrentListUpdate{
			Build:   2,
			Labels:  []Label{{Name: "tv", TorrentCount: 1}},
			Changed: []Torrent{{Hash: "a", Name: "A", PercentProgress: 200}, {Hash: "d", Name: "D"}},
			Removed: []string{"b"},
			CacheID: "2",
		})

		assert.Equal(t, int64(2), next.Build)
		assert.Equal(t, "2", next.CacheID)
		assert.Equal(t, []Label{{Name: "tv", TorrentCount: 1}}, next.Labels)
		assert.Equal(t, []string{"a", "c", "d"}, hashes(next.Torrents))
		assert.Equal(t, int64(200), next.Torrents[0].PercentProgress)

		// the original snapshot is untouched
		assert.Equal(t, []string{"a", "b", "c"}, hashes(base.Torrents))
		assert.Equal(t, int64(100), base.Torrents[0].PercentProgress)
	})

	t.Run("labels kept when absent", func(t *testing.T) {
		next := base.Apply(TorrentListUpdate{Build: 2, CacheID: "2"})
		assert.Equal(t, base.Labels, next.Labels)
		assert.Equal(t, hashes(base.Torrents), hashes(next.Torrents))
	})

	t.Run("full update replaces torrents", func(t *testing.T) {
		next := base.Apply(TorrentListUpdate{
			Build:      3,
			Changed:    []Torrent{{Hash: "z"}},
			CacheID:    "3",
			FullUpdate: true,
		})
		assert.Equal(t, []string{"z"}, hashes(next.Torrents))
	})
}

func TestTorrentList_Lookup(t *testing.T) {
	list := TorrentList{
		Labels:   []Label{{Name: "movies", TorrentCount: 1}},
		Torrents: []Torrent{{Hash: "a", Name: "A"}},
	}

	torrent, ok := list.Torrent("a")
	assert.True(t, ok)
	assert.Equal(t, "A", torrent.Name)

	_, ok = list.Torrent("missing")
	assert.False(t, ok)

	label, ok := list.Label("movies")
	assert.True(t, ok)
	assert.Equal(t, int64(1), label.TorrentCount)

	_, ok = list.Label("tv")
	assert.False(t, ok)
}
