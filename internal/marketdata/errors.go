package marketdata

import "errors"

// ErrUnsupportedInterval is returned when a caller requests a candle
// interval outside the closed enumeration {1m, 5m, 15m, 1h, 1d}.
var ErrUnsupportedInterval = errors.New("marketdata: unsupported interval")
