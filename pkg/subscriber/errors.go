package subscriber

import "errors"

var (
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrAlreadySubscribed   = errors.New("already subscribed")
	ErrAlreadyUnsubscribed = errors.New("already unsubscribed")
	ErrNotSubscribed       = errors.New("not subscribed, call Subscribe() first")
	ErrNoSignalingClient   = errors.New("signaling client is required")
	ErrUnknownKind         = errors.New("unknown media kind")
)
