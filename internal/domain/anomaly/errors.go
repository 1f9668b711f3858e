package anomaly

import "errors"

var ErrInvalidConfig = errors.New("invalid anomaly config")
