package chat

import "errors"

// Failure classes surfaced to the presentation layer. None are fatal; the
// caller shows a transient notification and stays interactive.
var (
	ErrResolutionFailed = errors.New("conversation resolution failed")
	ErrFeedUnavailable  = errors.New("message feed unavailable")
	ErrSendFailed       = errors.New("message send failed")
	ErrMembershipChange = errors.New("membership change failed")
	ErrNotChannel       = errors.New("conversation is not a channel")
	ErrNotOwner         = errors.New("only the channel owner may do this")
	ErrEmptyMessage     = errors.New("message content is empty")
)
