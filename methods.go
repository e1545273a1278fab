package utorrent

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/valyala/fastjson"

	"github.com/autobrr/go-utorrent/errors"
)

// GetTorrentList https://github.com/bittorrent/webui/wiki/Web-UI-API#list
func (c *Client) GetTorrentList() (TorrentList, error) {
	return c.GetTorrentListCtx(context.Background())
}

func (c *Client) GetTorrentListCtx(ctx context.Context) (TorrentList, error) {
	body, err := c.query(ctx, url.Values{"list": {"1"}})
	if err != nil {
		return TorrentList{}, errors.Wrap(err, "could not get torrent list")
	}

	list, err := parseTorrentList(body)
	if err != nil {
		return TorrentList{}, errors.Wrap(err, "could not decode torrent list")
	}

	return list, nil
}

// GetTorrentListSince returns the changes since the snapshot identified by cacheID.
// Use TorrentList.Apply to fold the result into that snapshot.
func (c *Client) GetTorrentListSince(cacheID string) (TorrentListUpdate, error) {
	return c.GetTorrentListSinceCtx(context.Background(), cacheID)
}

func (c *Client) GetTorrentListSinceCtx(ctx context.Context, cacheID string) (TorrentListUpdate, error) {
	body, err := c.query(ctx, url.Values{"list": {"1"}, "cid": {cacheID}})
	if err != nil {
		return TorrentListUpdate{}, errors.Wrap(err, "could not get torrent list; cid: %v", cacheID)
	}

	update, err := parseTorrentListUpdate(body)
	if err != nil {
		return TorrentListUpdate{}, errors.Wrap(err, "could not decode torrent list update")
	}

	return update, nil
}

func (c *Client) GetFiles(hash string) (TorrentFiles, error) {
	return c.GetFilesCtx(context.Background(), hash)
}

func (c *Client) GetFilesCtx(ctx context.Context, hash string) (TorrentFiles, error) {
	body, err := c.query(ctx, url.Values{"action": {"getfiles"}, "hash": {hash}})
	if err != nil {
		return TorrentFiles{}, errors.Wrap(err, "could not get files; hash: %v", hash)
	}

	v, err := parseObject(body)
	if err != nil {
		return TorrentFiles{}, errors.Wrap(err, "could not decode files; hash: %v", hash)
	}

	lists, err := decodeFileLists(v.Get("files"))
	if err != nil {
		return TorrentFiles{}, errors.Wrap(err, "could not decode files; hash: %v", hash)
	}

	for _, list := range lists {
		if strings.EqualFold(list.Hash, hash) {
			return list, nil
		}
	}

	// a lone entry is the one asked for
	if len(lists) == 1 {
		return lists[0], nil
	}

	if len(lists) > 1 {
		return TorrentFiles{}, errors.Wrap(ErrProtocolFailure, "no files for hash %v in %d lists", hash, len(lists))
	}

	return TorrentFiles{Hash: hash}, nil
}

// SetFilePriority sets the priority of the file at fileIndex. The priority is
// sent as is; the daemon decides what to do with values outside 0..3.
func (c *Client) SetFilePriority(hash string, fileIndex int, priority Priority) (Ack, error) {
	return c.SetFilePriorityCtx(context.Background(), hash, fileIndex, priority)
}

func (c *Client) SetFilePriorityCtx(ctx context.Context, hash string, fileIndex int, priority Priority) (Ack, error) {
	params := url.Values{
		"action": {"setprio"},
		"hash":   {hash},
		"p":      {strconv.Itoa(int(priority))},
		"f":      {strconv.Itoa(fileIndex)},
	}

	ack, err := c.actionCtx(ctx, params)
	if err != nil {
		return Ack{}, errors.Wrap(err, "could not set file priority; hash: %v | file: %d | priority: %d", hash, fileIndex, priority)
	}

	return ack, nil
}

func (c *Client) Start(hash string) (Ack, error) {
	return c.StartCtx(context.Background(), hash)
}

func (c *Client) StartCtx(ctx context.Context, hash string) (Ack, error) {
	return c.torrentActionCtx(ctx, "start", hash)
}

func (c *Client) Stop(hash string) (Ack, error) {
	return c.StopCtx(context.Background(), hash)
}

func (c *Client) StopCtx(ctx context.Context, hash string) (Ack, error) {
	return c.torrentActionCtx(ctx, "stop", hash)
}

func (c *Client) Pause(hash string) (Ack, error) {
	return c.PauseCtx(context.Background(), hash)
}

func (c *Client) PauseCtx(ctx context.Context, hash string) (Ack, error) {
	return c.torrentActionCtx(ctx, "pause", hash)
}

func (c *Client) ForceStart(hash string) (Ack, error) {
	return c.ForceStartCtx(context.Background(), hash)
}

func (c *Client) ForceStartCtx(ctx context.Context, hash string) (Ack, error) {
	return c.torrentActionCtx(ctx, "forcestart", hash)
}

func (c *Client) Unpause(hash string) (Ack, error) {
	return c.UnpauseCtx(context.Background(), hash)
}

func (c *Client) UnpauseCtx(ctx context.Context, hash string) (Ack, error) {
	return c.torrentActionCtx(ctx, "unpause", hash)
}

func (c *Client) Recheck(hash string) (Ack, error) {
	return c.RecheckCtx(context.Background(), hash)
}

func (c *Client) RecheckCtx(ctx context.Context, hash string) (Ack, error) {
	return c.torrentActionCtx(ctx, "recheck", hash)
}

// Remove removes the torrent and keeps the downloaded data.
func (c *Client) Remove(hash string) (Ack, error) {
	return c.RemoveCtx(context.Background(), hash)
}

func (c *Client) RemoveCtx(ctx context.Context, hash string) (Ack, error) {
	return c.torrentActionCtx(ctx, "remove", hash)
}

// RemoveData removes the torrent together with its downloaded data.
func (c *Client) RemoveData(hash string) (Ack, error) {
	return c.RemoveDataCtx(context.Background(), hash)
}

func (c *Client) RemoveDataCtx(ctx context.Context, hash string) (Ack, error) {
	return c.torrentActionCtx(ctx, "removedata", hash)
}

func (c *Client) QueueTop(hash string) (Ack, error) {
	return c.QueueTopCtx(context.Background(), hash)
}

func (c *Client) QueueTopCtx(ctx context.Context, hash string) (Ack, error) {
	return c.torrentActionCtx(ctx, "queuetop", hash)
}

func (c *Client) QueueUp(hash string) (Ack, error) {
	return c.QueueUpCtx(context.Background(), hash)
}

func (c *Client) QueueUpCtx(ctx context.Context, hash string) (Ack, error) {
	return c.torrentActionCtx(ctx, "queueup", hash)
}

func (c *Client) QueueDown(hash string) (Ack, error) {
	return c.QueueDownCtx(context.Background(), hash)
}

func (c *Client) QueueDownCtx(ctx context.Context, hash string) (Ack, error) {
	return c.torrentActionCtx(ctx, "queuedown", hash)
}

func (c *Client) QueueBottom(hash string) (Ack, error) {
	return c.QueueBottomCtx(context.Background(), hash)
}

func (c *Client) QueueBottomCtx(ctx context.Context, hash string) (Ack, error) {
	return c.torrentActionCtx(ctx, "queuebottom", hash)
}

// AddTorrentFromUrl add new torrent from a url or magnet link
func (c *Client) AddTorrentFromUrl(torrentUrl string) (Ack, error) {
	return c.AddTorrentFromUrlCtx(context.Background(), torrentUrl)
}

func (c *Client) AddTorrentFromUrlCtx(ctx context.Context, torrentUrl string) (Ack, error) {
	if torrentUrl == "" {
		return Ack{}, ErrNoTorrentURLProvided
	}

	ack, err := c.actionCtx(ctx, url.Values{"action": {"add-url"}, "s": {torrentUrl}})
	if err != nil {
		return Ack{}, errors.Wrap(err, "could not add torrent; url: %v", torrentUrl)
	}

	return ack, nil
}

// AddTorrentFromFile add new torrent from torrent file. The file is open only
// for the duration of the upload.
func (c *Client) AddTorrentFromFile(filePath string) (Ack, error) {
	return c.AddTorrentFromFileCtx(context.Background(), filePath)
}

func (c *Client) AddTorrentFromFileCtx(ctx context.Context, filePath string) (Ack, error) {
	resp, err := c.postFileCtx(ctx, filePath)
	if err != nil {
		return Ack{}, errors.Wrap(err, "could not add torrent; filePath: %v", filePath)
	}

	ack, err := c.readAck(resp)
	if err != nil {
		return Ack{}, errors.Wrap(err, "could not add torrent; filePath: %v", filePath)
	}

	return ack, nil
}

func (c *Client) AddTorrentFromMemory(name string, buf []byte) (Ack, error) {
	return c.AddTorrentFromMemoryCtx(context.Background(), name, buf)
}

func (c *Client) AddTorrentFromMemoryCtx(ctx context.Context, name string, buf []byte) (Ack, error) {
	resp, err := c.postReaderCtx(ctx, name, bytes.NewReader(buf))
	if err != nil {
		return Ack{}, errors.Wrap(err, "could not add torrent; name: %v", name)
	}

	ack, err := c.readAck(resp)
	if err != nil {
		return Ack{}, errors.Wrap(err, "could not add torrent; name: %v", name)
	}

	return ack, nil
}

// GetProperties https://github.com/bittorrent/webui/wiki/Web-UI-API#getprops
func (c *Client) GetProperties(hash string) (TorrentProperties, error) {
	return c.GetPropertiesCtx(context.Background(), hash)
}

func (c *Client) GetPropertiesCtx(ctx context.Context, hash string) (TorrentProperties, error) {
	body, err := c.query(ctx, url.Values{"action": {"getprops"}, "hash": {hash}})
	if err != nil {
		return TorrentProperties{}, errors.Wrap(err, "could not get properties; hash: %v", hash)
	}

	var resp propsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return TorrentProperties{}, errors.Wrap(ErrMalformedRecord, "could not unmarshal properties: %v", err)
	}

	for _, props := range resp.Props {
		if strings.EqualFold(props.Hash, hash) {
			return props, nil
		}
	}

	if len(resp.Props) == 1 {
		return resp.Props[0], nil
	}

	if len(resp.Props) > 1 {
		return TorrentProperties{}, errors.Wrap(ErrProtocolFailure, "no properties for hash %v in %d entries", hash, len(resp.Props))
	}

	return TorrentProperties{}, nil
}

// SetProperty sets one torrent property, e.g. "label" or "ulrate".
func (c *Client) SetProperty(hash, key, value string) (Ack, error) {
	return c.SetPropertyCtx(context.Background(), hash, key, value)
}

func (c *Client) SetPropertyCtx(ctx context.Context, hash, key, value string) (Ack, error) {
	params := url.Values{
		"action": {"setprops"},
		"hash":   {hash},
		"s":      {key},
		"v":      {value},
	}

	ack, err := c.actionCtx(ctx, params)
	if err != nil {
		return Ack{}, errors.Wrap(err, "could not set property; hash: %v | property: %v", hash, key)
	}

	return ack, nil
}

func (c *Client) GetSettings() ([]Setting, error) {
	return c.GetSettingsCtx(context.Background())
}

func (c *Client) GetSettingsCtx(ctx context.Context) ([]Setting, error) {
	body, err := c.query(ctx, url.Values{"action": {"getsettings"}})
	if err != nil {
		return nil, errors.Wrap(err, "could not get settings")
	}

	v, err := parseObject(body)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode settings")
	}

	settings, err := decodeSettings(v.Get("settings"))
	if err != nil {
		return nil, errors.Wrap(err, "could not decode settings")
	}

	return settings, nil
}

func (c *Client) SetSetting(name, value string) (Ack, error) {
	return c.SetSettingCtx(context.Background(), name, value)
}

func (c *Client) SetSettingCtx(ctx context.Context, name, value string) (Ack, error) {
	ack, err := c.actionCtx(ctx, url.Values{"action": {"setsetting"}, "s": {name}, "v": {value}})
	if err != nil {
		return Ack{}, errors.Wrap(err, "could not set setting; name: %v", name)
	}

	return ack, nil
}

func (c *Client) torrentActionCtx(ctx context.Context, action, hash string) (Ack, error) {
	ack, err := c.actionCtx(ctx, url.Values{"action": {action}, "hash": {hash}})
	if err != nil {
		return Ack{}, errors.Wrap(err, "could not %v torrent; hash: %v", action, hash)
	}

	return ack, nil
}

func (c *Client) actionCtx(ctx context.Context, params url.Values) (Ack, error) {
	resp, err := c.getCtx(ctx, params)
	if err != nil {
		return Ack{}, err
	}

	return c.readAck(resp)
}

// query issues a GET and returns the body of a 200 response. A body carrying an
// "error" member is a protocol failure.
func (c *Client) query(ctx context.Context, params url.Values) ([]byte, error) {
	resp, err := c.getCtx(ctx, params)
	if err != nil {
		return nil, err
	}

	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("query", params.Encode()).Msg("unexpected status")
		return nil, errors.Wrap(ErrUnexpectedStatus, "status code: %d", resp.StatusCode)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if msg := fastjson.GetString(body, "error"); msg != "" {
		c.log.Warn().Str("error", msg).Str("query", params.Encode()).Msg("daemon returned error")
		return nil, errors.Wrap(ErrProtocolFailure, "%v", msg)
	}

	return body, nil
}

func (c *Client) readAck(resp *http.Response) (Ack, error) {
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("url", resp.Request.URL.Path).Msg("unexpected status")
		return Ack{}, errors.Wrap(ErrUnexpectedStatus, "status code: %d", resp.StatusCode)
	}

	body, err := readBody(resp)
	if err != nil {
		return Ack{}, err
	}

	ack, err := decodeAck(body)
	if errors.Is(err, ErrProtocolFailure) {
		c.log.Warn().Err(err).Str("url", resp.Request.URL.Path).Msg("daemon returned error")
	}

	return ack, err
}

// decodeAck treats an empty body as success and an "error" member as a protocol failure.
func decodeAck(body []byte) (Ack, error) {
	var ack Ack
	if len(bytes.TrimSpace(body)) == 0 {
		return ack, nil
	}

	if err := json.Unmarshal(body, &ack); err != nil {
		return Ack{}, errors.Wrap(ErrMalformedRecord, "could not unmarshal body: %v", err)
	}

	if ack.Error != "" {
		return Ack{}, errors.Wrap(ErrProtocolFailure, "%v", ack.Error)
	}

	return ack, nil
}
