package solana

import (
	"net"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// NetworkMemory runs the program in an in-process ledger instead of a cluster
const NetworkMemory = "memory"

var ErrMissingKeyFile = errors.New("a key file is required to sign on a cluster")

type Config struct {
	// KeyFile path for the account paying for the mints
	KeyFile string
	// AdminKeyFile path for the admin key co-signing every mint
	AdminKeyFile string
	// NetworkName of the solana network to connect to
	NetworkName string
	// Endpoint to connect to. If this is not an empty string, override the NetworkName
	Endpoint string
}

// Validate the Solana config
func (cfg Config) Validate() error {
	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.Errorf("invalid solana endpoint %q", cfg.Endpoint)
		}
	} else if _, err := cluster(cfg.NetworkName); err != nil && cfg.NetworkName != NetworkMemory {
		return err
	}

	if cfg.NetworkName == NetworkMemory && cfg.Endpoint == "" {
		// keys are generated when missing
		return nil
	}
	if cfg.KeyFile == "" {
		return errors.Wrap(ErrMissingKeyFile, "payer")
	}
	if cfg.AdminKeyFile == "" {
		return errors.Wrap(ErrMissingKeyFile, "admin")
	}
	return nil
}

// InMemory reports if no cluster is used
func (cfg Config) InMemory() bool {
	return cfg.NetworkName == NetworkMemory && cfg.Endpoint == ""
}

// wsEndpoint derives the websocket endpoint of an rpc endpoint. A plain http validator serves it on
// the next port.
func wsEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrap(err, "invalid rpc endpoint")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
		if port, err := strconv.Atoi(u.Port()); err == nil {
			u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port+1))
		}
	}
	return u.String(), nil
}
