package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is used only for unmarshalling; durations go through
// timex.Duration so "3s" and integer nanoseconds both work.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	GRPCAddr            string         `json:"grpc_addr"`
	Transport           string         `json:"transport"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SessionDB           string         `json:"session_db"`
}

// parseJson overlays the file named by -c / -config. Missing fields keep
// their current value. Read or decode errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.GRPCAddr != "" {
		cfg.GRPCAddr = jc.GRPCAddr
	}
	if jc.Transport != "" {
		cfg.Transport = jc.Transport
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.SessionDB != "" {
		cfg.SessionDB = jc.SessionDB
	}
}
