package properties

import "errors"

var (
	ErrNotFound       = errors.New("property not found")
	ErrClientNotFound = errors.New("client not found")
	ErrInvalidInput   = errors.New("invalid property")
	ErrGeocoding      = errors.New("address could not be geocoded")
	ErrEmptyFile      = errors.New("photo is empty")
	ErrStore          = errors.New("object store failure")
	ErrPersistence    = errors.New("failed to persist property")
)
