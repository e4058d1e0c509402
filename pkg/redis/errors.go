package redis

import "errors"

var (
	ErrInvalidURL         = errors.New("invalid redis connection URL")
	ErrNotReady           = errors.New("redis did not answer ping before the retry budget ran out")
	ErrEmptyConnectionURL = errors.New("redis connection URL is empty")
	ErrHealthcheckFailed  = errors.New("redis healthcheck failed")
	ErrGroupStore         = errors.New("redis group store operation failed")
	ErrDedup              = errors.New("redis event deduplication failed")
)
