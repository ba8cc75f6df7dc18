// Package config holds authctl settings: built-in defaults, then an optional
// JSON file (-c / -config), then command-line flags.
package config

import "time"

const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Config holds runtime settings for the authctl client.
//
// Fields:
//   - ServerURL: base URL of the HTTP API.
//   - GRPCAddr: host:port of the gRPC endpoint.
//   - Transport: "http" or "grpc". Avatar upload is HTTP only.
//   - RequestTimeout: per call deadline.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - SessionDB: path of the local SQLite file holding the current session.
type Config struct {
	ServerURL           string
	GRPCAddr            string
	Transport           string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
	SessionDB           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.GRPCAddr = "127.0.0.1:50051"
	c.Transport = TransportHTTP
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 5 * time.Second
	c.SessionDB = "authctl.db"
}

// LoadConfig applies defaults, then JSON, then flags. Later sources take
// precedence.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
