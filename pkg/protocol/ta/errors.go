package ta

import "errors"

var errNoSigner = errors.New("terminal authentication: config carries neither an RSA nor an ECDSA signer")
