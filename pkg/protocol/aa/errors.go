package aa

import "errors"

var errNoVerifier = errors.New("active authentication: config carries neither an RSA nor an ECDSA public key")
