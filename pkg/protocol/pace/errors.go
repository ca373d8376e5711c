package pace

import "errors"

var (
	errMutualAuthFailed = errors.New("PACE mutual authentication token mismatch")
	errMissingDO         = errors.New("GENERAL AUTHENTICATE response missing expected dynamic authentication data object")
	errCurveRequired     = errors.New("ECDH agreement requires a named curve")
	errDHParamsRequired  = errors.New("DH agreement requires explicit domain parameters")
)
