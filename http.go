package utorrent

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/autobrr/go-utorrent/errors"
)

const torrentFileField = "torrent_file"

// openTorrentFile is swapped in tests to observe the file handle lifecycle.
var openTorrentFile = func(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

func (c *Client) getCtx(ctx context.Context, params url.Values) (*http.Response, error) {
	reqUrl, err := c.buildUrl(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build request")
	}

	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		c.log.Error().Err(err).Str("query", params.Encode()).Msg("get request failed")
		return nil, errors.Wrap(err, "error making get request: %v", params.Encode())
	}

	return resp, nil
}

func (c *Client) postFileCtx(ctx context.Context, fileName string) (*http.Response, error) {
	f, err := openTorrentFile(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "error reading file %v", fileName)
	}

	defer f.Close()

	return c.postReaderCtx(ctx, fileName, f)
}

func (c *Client) postReaderCtx(ctx context.Context, fileName string, r io.Reader) (*http.Response, error) {
	// Buffer to store our request body as bytes
	var requestBody bytes.Buffer

	multiPartWriter := multipart.NewWriter(&requestBody)

	fileWriter, err := multiPartWriter.CreateFormFile(torrentFileField, filepath.Base(fileName))
	if err != nil {
		return nil, errors.Wrap(err, "error initializing file field")
	}

	if _, err := io.Copy(fileWriter, r); err != nil {
		return nil, errors.Wrap(err, "error copy file contents to writer")
	}

	contentType := multiPartWriter.FormDataContentType()
	if err := multiPartWriter.Close(); err != nil {
		return nil, errors.Wrap(err, "error closing multipart writer")
	}

	reqUrl, err := c.buildUrl(url.Values{"action": {"add-file"}})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqUrl, &requestBody)
	if err != nil {
		return nil, errors.Wrap(err, "error creating request")
	}

	c.authorize(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(ctx, req)
	if err != nil {
		c.log.Error().Err(err).Str("file", filepath.Base(fileName)).Msg("post file request failed")
		return nil, errors.Wrap(err, "error making post file request")
	}

	return resp, nil
}

func (c *Client) authorize(req *http.Request) {
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	if cookie := c.session.cookie(); cookie != nil {
		req.AddCookie(cookie)
	}
}

// do sends a single request. Transport errors are reported as ErrTransportFailure
// and the response is nil. Callers log the failure.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(ErrTransportFailure, "rate limiter wait: %v", err)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrTransportFailure, "%v", err)
	}

	return resp, nil
}

// buildUrl returns {host}/?{params}&token={token}. The token is always last.
func (c *Client) buildUrl(params url.Values) (string, error) {
	joinedUrl, err := url.JoinPath(c.cfg.Host, "/")
	if err != nil {
		return "", errors.Wrap(err, "could not join host %v", c.cfg.Host)
	}

	query := params.Encode()
	if query != "" {
		query += "&"
	}
	query += "token=" + url.QueryEscape(c.session.Token)

	return joinedUrl + "?" + query, nil
}

func (c *Client) buildTokenUrl() (string, error) {
	reqUrl, err := url.JoinPath(c.cfg.Host, "token.html")
	if err != nil {
		return "", errors.Wrap(err, "could not join host %v", c.cfg.Host)
	}

	return reqUrl, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(ErrTransportFailure, "could not read body: %v", err)
	}

	return body, nil
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
