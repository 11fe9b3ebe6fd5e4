package registry

import "errors"

var ErrUnknownKey = errors.New("unknown plugin or preset key")
