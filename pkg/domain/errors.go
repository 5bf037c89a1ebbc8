package domain

import "errors"

// ErrNoImageData means a provider answered successfully but returned no image.
var ErrNoImageData = errors.New("response contains no image data")
