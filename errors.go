package utorrent

import (
	"github.com/autobrr/go-utorrent/errors"
)

var (
	// ErrAuthFailure the daemon rejected the token handshake
	ErrAuthFailure = errors.New("authentication failure")

	// ErrTransportFailure the daemon could not be reached or the connection broke
	ErrTransportFailure = errors.New("transport failure")

	// ErrProtocolFailure the daemon answered 200 with an error payload
	ErrProtocolFailure = errors.New("protocol failure")

	ErrUnexpectedStatus = errors.New("unexpected status code")

	ErrTokenNotFound = errors.New("token element not found")

	// ErrMalformedRecord a positional record is shorter than required or has a wrong field type
	ErrMalformedRecord = errors.New("malformed record")

	ErrNoTorrentURLProvided = errors.New("no torrent url provided")
)
