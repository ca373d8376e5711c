package bac

import "errors"

var (
	errNonceMismatch       = errors.New("ICC echoed a different RND.ICC or RND.IFD than sent")
	errResponseMACMismatch = errors.New("ICC response MAC verification failed")
)
