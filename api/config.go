package api

import (
	"net"

	"github.com/pkg/errors"
)

type Config struct {
	// Address the http server listens on
	Address string
	// AllowedOrigins for cross origin requests, all origins when empty
	AllowedOrigins []string
	// ImageURL shown in the metadata of every ticket
	ImageURL string
}

// Validate the api config
func (cfg Config) Validate() error {
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return errors.Wrapf(err, "invalid http address %q", cfg.Address)
	}
	return nil
}
