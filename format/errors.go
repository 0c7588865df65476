package format

import "errors"

var (
	ErrMalformedDocument    = errors.New("malformed document")
	ErrNoEnvelope           = errors.New("document carries no envelope")
	ErrAlreadyEncrypted     = errors.New("document already carries an envelope")
	ErrNoUsableKeyWrapping  = errors.New("no key wrapping could be unwrapped")
	ErrIntegrityCheckFailed = errors.New("integrity code mismatch")
)
