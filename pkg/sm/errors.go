package sm

import "errors"

var (
	errWrongKeySize = errors.New("session key does not match suite key size")
	errMACMismatch  = errors.New("MAC does not match")
)
