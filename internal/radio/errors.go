package radio

import "errors"

var (
	ErrInvalidAddr     = errors.New("invalid link address")
	ErrInvalidPeer     = errors.New("peer address must be unicast")
	ErrPeerNotFound    = errors.New("peer not registered")
	ErrPayloadTooLarge = errors.New("payload exceeds radio frame size")
	ErrEmptyPayload    = errors.New("empty payload")
	ErrClosed          = errors.New("transport closed")
	ErrAddrInUse       = errors.New("link address already attached")
	ErrRateLimited     = errors.New("radio send rate limited")
)
