package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags populates Config from command-line flags:
//
//	-a string   HTTP API base URL
//	-ga string  gRPC endpoint host:port
//	-tr string  transport, "http" or "grpc"
//	-t int      request timeout in seconds
//	-i int      online check interval in seconds
//	-db string  session database file
//
// Unknown flags are filtered out with flagx.FilterArgs.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-ga", "-tr", "-t", "-i", "-db"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "HTTP API base URL")
	fs.StringVar(&cfg.GRPCAddr, "ga", cfg.GRPCAddr, "gRPC endpoint address")
	fs.StringVar(&cfg.Transport, "tr", cfg.Transport, "transport (http|grpc)")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.SessionDB, "db", cfg.SessionDB, "session database file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
