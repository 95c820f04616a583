package shared

import "errors"

// ErrInvalidToken indicates a rejected operator token.
var ErrInvalidToken = errors.New("invalid operator token")
