package media

import "errors"

// Sentinel errors for media access.
var (
	ErrFetch    = errors.New("media fetch failed")
	ErrTooLarge = errors.New("media exceeds size limit")
	ErrNotImage = errors.New("media is not an image")
	ErrDecode   = errors.New("media decode failed")
)
