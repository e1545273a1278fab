package utorrent

import (
	"strconv"
	"time"
)

// TorrentStatus is the bitfield at index 1 of a torrent record.
type TorrentStatus struct {
	Started         bool
	Checking        bool
	StartAfterCheck bool
	Checked         bool
	Error           bool
	Paused          bool
	Queued          bool
	Loaded          bool
}

// Status bits, low to high
const (
	StatusStarted int64 = 1 << iota
	StatusChecking
	StatusStartAfterCheck
	StatusChecked
	StatusError
	StatusPaused
	StatusQueued
	StatusLoaded
)

func ParseTorrentStatus(v int64) TorrentStatus {
	return TorrentStatus{
		Started:         v&StatusStarted != 0,
		Checking:        v&StatusChecking != 0,
		StartAfterCheck: v&StatusStartAfterCheck != 0,
		Checked:         v&StatusChecked != 0,
		Error:           v&StatusError != 0,
		Paused:          v&StatusPaused != 0,
		Queued:          v&StatusQueued != 0,
		Loaded:          v&StatusLoaded != 0,
	}
}

// Bits encodes the flags back into the protocol integer.
func (s TorrentStatus) Bits() int64 {
	var v int64
	flags := []struct {
		set bool
		bit int64
	}{
		{s.Started, StatusStarted},
		{s.Checking, StatusChecking},
		{s.StartAfterCheck, StatusStartAfterCheck},
		{s.Checked, StatusChecked},
		{s.Error, StatusError},
		{s.Paused, StatusPaused},
		{s.Queued, StatusQueued},
		{s.Loaded, StatusLoaded},
	}

	for _, f := range flags {
		if f.set {
			v |= f.bit
		}
	}

	return v
}

// Torrent is one entry of the "torrents" array.
//
// https://github.com/bittorrent/webui/wiki/Web-UI-API#list
//
// Units follow the protocol: sizes and speeds in bytes, progress and ratio in
// mils (1000 = 100%), availability in 1/65535, ETA in seconds and dates as unix
// epoch seconds.
type Torrent struct {
	Hash            string
	Status          TorrentStatus
	Name            string
	Size            int64
	PercentProgress int64
	Downloaded      int64
	Uploaded        int64
	Ratio           int64
	UploadSpeed     int64
	DownloadSpeed   int64
	ETA             int64
	Label           string
	PeersConnected  int64
	PeersInSwarm    int64
	SeedsConnected  int64
	SeedsInSwarm    int64
	Availability    int64
	QueueOrder      int64
	Remaining       int64
	DownloadURL     string
	FeedURL         string
	StatusMessage   string
	DateAdded       int64
	DateCompleted   int64

	// SavePath is only sent by 3.x builds
	SavePath string
}

// Progress returns completion in the range 0..1.
func (t Torrent) Progress() float64 {
	return float64(t.PercentProgress) / 1000
}

func (t Torrent) RatioValue() float64 {
	return float64(t.Ratio) / 1000
}

// AvailabilityValue returns distributed copies, 1.0 meaning one full copy.
func (t Torrent) AvailabilityValue() float64 {
	return float64(t.Availability) / 65535
}

func (t Torrent) AddedAt() time.Time {
	return epoch(t.DateAdded)
}

// CompletedAt is the zero time for unfinished torrents.
func (t Torrent) CompletedAt() time.Time {
	return epoch(t.DateCompleted)
}

func (t Torrent) IsCompleted() bool {
	return t.PercentProgress >= 1000
}

func epoch(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}

	return time.Unix(sec, 0)
}

type Label struct {
	Name         string
	TorrentCount int64
}

// TorrentList is a point-in-time snapshot returned by list=1.
type TorrentList struct {
	Build    int64
	Labels   []Label
	Torrents []Torrent

	// CacheID is passed back as cid to request only changes
	CacheID string
}

// TorrentListUpdate is the answer to list=1&cid=X.
type TorrentListUpdate struct {
	Build   int64
	Labels  []Label
	Changed []Torrent
	Removed []string
	CacheID string

	// FullUpdate is set when the daemon ignored the cache id and sent every torrent
	FullUpdate bool
}

type Priority int

const (
	PriorityDoNotDownload Priority = 0
	PriorityLow           Priority = 1
	PriorityNormal        Priority = 2
	PriorityHigh          Priority = 3
)

func (p Priority) String() string {
	switch p {
	case PriorityDoNotDownload:
		return "skip"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return strconv.Itoa(int(p))
	}
}

// File is one entry of a getfiles response.
type File struct {
	Name       string
	Size       int64
	Downloaded int64
	Priority   Priority

	// sent by 3.x builds only
	FirstPiece int64
	NumPieces  int64
}

type TorrentFiles struct {
	Hash  string
	Files []File
}

type SettingType int

const (
	SettingTypeInt    SettingType = 0
	SettingTypeBool   SettingType = 1
	SettingTypeString SettingType = 2
)

type Setting struct {
	Name  string
	Type  SettingType
	Value string
}

func (s Setting) Bool() (bool, error) {
	return strconv.ParseBool(s.Value)
}

func (s Setting) Int() (int64, error) {
	return strconv.ParseInt(s.Value, 10, 64)
}

// TorrentProperties
//
// https://github.com/bittorrent/webui/wiki/Web-UI-API#getprops
//
// superseed, dht, pex and seed_override are -1 (not allowed), 0 (disabled) or 1 (enabled)
type TorrentProperties struct {
	Hash         string `json:"hash"`
	Trackers     string `json:"trackers"`
	UploadRate   int64  `json:"ulrate"`
	DownloadRate int64  `json:"dlrate"`
	SuperSeed    int    `json:"superseed"`
	DHT          int    `json:"dht"`
	PEX          int    `json:"pex"`
	SeedOverride int    `json:"seed_override"`
	SeedRatio    int64  `json:"seed_ratio"`
	SeedTime     int64  `json:"seed_time"`
	UploadSlots  int    `json:"ulslots"`
}

type propsResponse struct {
	Build int64               `json:"build"`
	Props []TorrentProperties `json:"props"`
}

// Ack is the body returned by action endpoints.
type Ack struct {
	Build int64  `json:"build"`
	Error string `json:"error,omitempty"`
}
