package utorrent

import (
	"math"

	"github.com/valyala/fastjson"

	"github.com/autobrr/go-utorrent/errors"
)

// Field positions inside a torrent record.
const (
	torrentHash = iota
	torrentStatus
	torrentName
	torrentSize
	torrentPercentProgress
	torrentDownloaded
	torrentUploaded
	torrentRatio
	torrentUploadSpeed
	torrentDownloadSpeed
	torrentETA
	torrentLabel
	torrentPeersConnected
	torrentPeersInSwarm
	torrentSeedsConnected
	torrentSeedsInSwarm
	torrentAvailability
	torrentQueueOrder
	torrentRemaining
	torrentDownloadURL
	torrentFeedURL
	torrentStatusMessage
	torrentStreamID
	torrentDateAdded
	torrentDateCompleted
	torrentAppUpdateURL
	torrentSavePath

	// records shorter than this are rejected
	minTorrentFields = torrentDateCompleted + 1
)

const (
	minLabelFields   = 2
	minFileFields    = 4
	minSettingFields = 3
)

func parseTorrentList(b []byte) (TorrentList, error) {
	v, err := parseObject(b)
	if err != nil {
		return TorrentList{}, err
	}

	return decodeTorrentList(v)
}

func parseTorrentListUpdate(b []byte) (TorrentListUpdate, error) {
	v, err := parseObject(b)
	if err != nil {
		return TorrentListUpdate{}, err
	}

	return decodeTorrentListUpdate(v)
}

func parseObject(b []byte) (*fastjson.Value, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(b)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedRecord, "could not parse body: %v", err)
	}

	if v.Type() != fastjson.TypeObject {
		return nil, errors.Wrap(ErrMalformedRecord, "expected object, got %s", v.Type())
	}

	return v, nil
}

func decodeTorrentList(v *fastjson.Value) (TorrentList, error) {
	var list TorrentList

	labels, err := decodeLabels(v.Get("label"))
	if err != nil {
		return TorrentList{}, err
	}

	torrents, err := decodeTorrents(v.Get("torrents"))
	if err != nil {
		return TorrentList{}, err
	}

	list.Build = v.GetInt64("build")
	list.Labels = labels
	list.Torrents = torrents
	list.CacheID = opaqueString(v.Get("torrentc"))

	return list, nil
}

func decodeTorrentListUpdate(v *fastjson.Value) (TorrentListUpdate, error) {
	update := TorrentListUpdate{
		Build:   v.GetInt64("build"),
		CacheID: opaqueString(v.Get("torrentc")),
	}

	labels, err := decodeLabels(v.Get("label"))
	if err != nil {
		return TorrentListUpdate{}, err
	}
	update.Labels = labels

	// an unknown cid makes the daemon fall back to a full list
	if v.Exists("torrents") {
		update.FullUpdate = true
		if update.Changed, err = decodeTorrents(v.Get("torrents")); err != nil {
			return TorrentListUpdate{}, err
		}

		return update, nil
	}

	if update.Changed, err = decodeTorrents(v.Get("torrentp")); err != nil {
		return TorrentListUpdate{}, err
	}

	removed, err := arrayOf(v.Get("torrentm"))
	if err != nil {
		return TorrentListUpdate{}, errors.Wrap(err, "torrentm")
	}

	for i := range removed {
		hash, err := stringField(removed, i)
		if err != nil {
			return TorrentListUpdate{}, errors.Wrap(err, "torrentm")
		}
		update.Removed = append(update.Removed, hash)
	}

	return update, nil
}

func decodeLabels(v *fastjson.Value) ([]Label, error) {
	items, err := arrayOf(v)
	if err != nil {
		return nil, errors.Wrap(err, "label")
	}

	labels := make([]Label, 0, len(items))
	for i, item := range items {
		label, err := decodeLabel(item)
		if err != nil {
			return nil, errors.Wrap(err, "label %d", i)
		}
		labels = append(labels, label)
	}

	return labels, nil
}

func decodeLabel(v *fastjson.Value) (Label, error) {
	fields, err := recordFields(v, minLabelFields)
	if err != nil {
		return Label{}, err
	}

	var (
		label Label
		errs  fieldErrors
	)

	label.Name = errs.str(fields, 0)
	label.TorrentCount = errs.num(fields, 1)

	return label, errs.err
}

func decodeTorrents(v *fastjson.Value) ([]Torrent, error) {
	items, err := arrayOf(v)
	if err != nil {
		return nil, errors.Wrap(err, "torrents")
	}

	torrents := make([]Torrent, 0, len(items))
	for i, item := range items {
		torrent, err := decodeTorrent(item)
		if err != nil {
			return nil, errors.Wrap(err, "torrent %d", i)
		}
		torrents = append(torrents, torrent)
	}

	return torrents, nil
}

// decodeTorrent maps a positional torrent record onto Torrent. Indices that are
// not mapped are skipped without shifting the others.
func decodeTorrent(v *fastjson.Value) (Torrent, error) {
	fields, err := recordFields(v, minTorrentFields)
	if err != nil {
		return Torrent{}, err
	}

	var (
		t    Torrent
		errs fieldErrors
	)

	t.Hash = errs.str(fields, torrentHash)
	t.Status = ParseTorrentStatus(errs.num(fields, torrentStatus))
	t.Name = errs.str(fields, torrentName)
	t.Size = errs.num(fields, torrentSize)
	t.PercentProgress = errs.num(fields, torrentPercentProgress)
	t.Downloaded = errs.num(fields, torrentDownloaded)
	t.Uploaded = errs.num(fields, torrentUploaded)
	t.Ratio = errs.num(fields, torrentRatio)
	t.UploadSpeed = errs.num(fields, torrentUploadSpeed)
	t.DownloadSpeed = errs.num(fields, torrentDownloadSpeed)
	t.ETA = errs.num(fields, torrentETA)
	t.Label = errs.str(fields, torrentLabel)
	t.PeersConnected = errs.num(fields, torrentPeersConnected)
	t.PeersInSwarm = errs.num(fields, torrentPeersInSwarm)
	t.SeedsConnected = errs.num(fields, torrentSeedsConnected)
	t.SeedsInSwarm = errs.num(fields, torrentSeedsInSwarm)
	t.Availability = errs.num(fields, torrentAvailability)
	t.QueueOrder = errs.num(fields, torrentQueueOrder)
	t.Remaining = errs.num(fields, torrentRemaining)
	t.DownloadURL = errs.str(fields, torrentDownloadURL)
	t.FeedURL = errs.str(fields, torrentFeedURL)
	t.StatusMessage = errs.str(fields, torrentStatusMessage)
	t.DateAdded = errs.num(fields, torrentDateAdded)
	t.DateCompleted = errs.num(fields, torrentDateCompleted)
	t.SavePath = errs.str(fields, torrentSavePath)

	return t, errs.err
}

// decodeFileLists reads the ["HASH", [files...], "HASH2", [files...]] layout.
func decodeFileLists(v *fastjson.Value) ([]TorrentFiles, error) {
	items, err := arrayOf(v)
	if err != nil {
		return nil, errors.Wrap(err, "files")
	}

	if len(items)%2 != 0 {
		return nil, errors.Wrap(ErrMalformedRecord, "files: odd number of entries: %d", len(items))
	}

	var lists []TorrentFiles
	for i := 0; i < len(items); i += 2 {
		hash, err := stringField(items, i)
		if err != nil {
			return nil, errors.Wrap(err, "files")
		}

		entries, err := arrayOf(items[i+1])
		if err != nil {
			return nil, errors.Wrap(err, "files of %v", hash)
		}

		list := TorrentFiles{Hash: hash, Files: make([]File, 0, len(entries))}
		for j, entry := range entries {
			file, err := decodeFile(entry)
			if err != nil {
				return nil, errors.Wrap(err, "file %d of %v", j, hash)
			}
			list.Files = append(list.Files, file)
		}

		lists = append(lists, list)
	}

	return lists, nil
}

func decodeFile(v *fastjson.Value) (File, error) {
	fields, err := recordFields(v, minFileFields)
	if err != nil {
		return File{}, err
	}

	var (
		f    File
		errs fieldErrors
	)

	f.Name = errs.str(fields, 0)
	f.Size = errs.num(fields, 1)
	f.Downloaded = errs.num(fields, 2)
	f.Priority = Priority(errs.num(fields, 3))
	f.FirstPiece = errs.num(fields, 4)
	f.NumPieces = errs.num(fields, 5)

	return f, errs.err
}

func decodeSettings(v *fastjson.Value) ([]Setting, error) {
	items, err := arrayOf(v)
	if err != nil {
		return nil, errors.Wrap(err, "settings")
	}

	settings := make([]Setting, 0, len(items))
	for i, item := range items {
		fields, err := recordFields(item, minSettingFields)
		if err != nil {
			return nil, errors.Wrap(err, "setting %d", i)
		}

		var errs fieldErrors
		s := Setting{
			Name:  errs.str(fields, 0),
			Type:  SettingType(errs.num(fields, 1)),
			Value: errs.str(fields, 2),
		}
		if errs.err != nil {
			return nil, errors.Wrap(errs.err, "setting %d", i)
		}

		settings = append(settings, s)
	}

	return settings, nil
}

func recordFields(v *fastjson.Value, minFields int) ([]*fastjson.Value, error) {
	if v == nil || v.Type() != fastjson.TypeArray {
		return nil, errors.Wrap(ErrMalformedRecord, "expected array")
	}

	fields, _ := v.Array()
	if len(fields) < minFields {
		return nil, errors.Wrap(ErrMalformedRecord, "got %d fields, need at least %d", len(fields), minFields)
	}

	return fields, nil
}

// arrayOf treats a missing or null value as an empty array.
func arrayOf(v *fastjson.Value) ([]*fastjson.Value, error) {
	if v == nil || v.Type() == fastjson.TypeNull {
		return nil, nil
	}

	items, err := v.Array()
	if err != nil {
		return nil, errors.Wrap(ErrMalformedRecord, "%v", err)
	}

	return items, nil
}

// fieldErrors keeps the first field error so decoders can read every index in sequence.
type fieldErrors struct {
	err error
}

func (e *fieldErrors) str(fields []*fastjson.Value, i int) string {
	s, err := stringField(fields, i)
	if err != nil && e.err == nil {
		e.err = err
	}
	return s
}

func (e *fieldErrors) num(fields []*fastjson.Value, i int) int64 {
	n, err := intField(fields, i)
	if err != nil && e.err == nil {
		e.err = err
	}
	return n
}

// stringField reads fields[i]; absent and null fields are empty.
func stringField(fields []*fastjson.Value, i int) (string, error) {
	if i >= len(fields) {
		return "", nil
	}

	v := fields[i]
	switch v.Type() {
	case fastjson.TypeNull:
		return "", nil
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b), nil
	case fastjson.TypeNumber:
		return v.String(), nil
	default:
		return "", errors.Wrap(ErrMalformedRecord, "field %d: expected string, got %s", i, v.Type())
	}
}

// intField reads fields[i]; absent and null fields are zero. Floats are accepted
// only when integral and within int64 range.
func intField(fields []*fastjson.Value, i int) (int64, error) {
	if i >= len(fields) {
		return 0, nil
	}

	v := fields[i]
	switch v.Type() {
	case fastjson.TypeNull:
		return 0, nil
	case fastjson.TypeNumber:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}

		f, err := v.Float64()
		if err != nil {
			return 0, errors.Wrap(ErrMalformedRecord, "field %d: %v", i, err)
		}

		if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
			return 0, errors.Wrap(ErrMalformedRecord, "field %d: %v is not an int64", i, f)
		}

		return int64(f), nil
	default:
		return 0, errors.Wrap(ErrMalformedRecord, "field %d: expected number, got %s", i, v.Type())
	}
}

// opaqueString keeps the cache id verbatim whether it was sent as string or number.
func opaqueString(v *fastjson.Value) string {
	if v == nil {
		return ""
	}

	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b)
	case fastjson.TypeNumber:
		return v.String()
	default:
		return ""
	}
}

func (t *Torrent) UnmarshalJSON(b []byte) error {
	v, err := fastjson.ParseBytes(b)
	if err != nil {
		return errors.Wrap(ErrMalformedRecord, "%v", err)
	}

	torrent, err := decodeTorrent(v)
	if err != nil {
		return err
	}

	*t = torrent
	return nil
}

func (l *Label) UnmarshalJSON(b []byte) error {
	v, err := fastjson.ParseBytes(b)
	if err != nil {
		return errors.Wrap(ErrMalformedRecord, "%v", err)
	}

	label, err := decodeLabel(v)
	if err != nil {
		return err
	}

	*l = label
	return nil
}

func (f *File) UnmarshalJSON(b []byte) error {
	v, err := fastjson.ParseBytes(b)
	if err != nil {
		return errors.Wrap(ErrMalformedRecord, "%v", err)
	}

	file, err := decodeFile(v)
	if err != nil {
		return err
	}

	*f = file
	return nil
}

func (l *TorrentList) UnmarshalJSON(b []byte) error {
	list, err := parseTorrentList(b)
	if err != nil {
		return err
	}

	*l = list
	return nil
}
