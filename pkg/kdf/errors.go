package kdf

import "errors"

var errDigestTooShort = errors.New("digest shorter than required key size")
