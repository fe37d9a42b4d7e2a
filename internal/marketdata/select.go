package marketdata

import "github.com/rs/zerolog"

// NewSource picks the live exchange stream when credentialsPresent is true,
// falling back to the synthetic random walk otherwise. The execution loop
// never observes which one it got — both satisfy Source identically.
func NewSource(credentialsPresent bool, cfg LiveConfig, logger zerolog.Logger) Source {
	if credentialsPresent {
		return NewLive(cfg, logger)
	}
	return NewSynthetic()
}
