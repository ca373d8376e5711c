package ca

import "errors"

var errMissingPICCKey = errors.New("chip authentication: no PICC static public key supplied for the selected agreement family")
