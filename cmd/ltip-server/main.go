// Command ltip-server runs the LTIP vesting engine behind an HTTP API.
package main

import (
	"flag"
	stdlog "log"
	"os"

	kitlog "github.com/go-kit/log"
	kitlevel "github.com/go-kit/log/level"
	"github.com/sirupsen/logrus"

	"github.com/sweat-foundation/ltip-engine/audit"
	"github.com/sweat-foundation/ltip-engine/httpapi"
	"github.com/sweat-foundation/ltip-engine/ledger"
	"github.com/sweat-foundation/ltip-engine/ltip"
)

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		addr            = flag.String("addr", getEnv("LTIP_HTTP_ADDR", ":8080"), "HTTP listen address")
		configPath      = flag.String("config", getEnv("LTIP_CONFIG_PATH", "config.json"), "Path to engine config JSON file")
		tokenID         = flag.String("token-id", getEnv("LTIP_TOKEN_ID", ""), "Override: FT contract this engine accepts")
		ownerID         = flag.String("owner-id", getEnv("LTIP_OWNER_ID", ""), "Override: account with role-management authority")
		cliffDuration   = flag.Uint64("cliff-duration", 0, "Override: cliff duration in seconds (0 = use config file)")
		vestingDuration = flag.Uint64("vesting-duration", 0, "Override: vesting duration in seconds (0 = use config file)")
		ipfsAddr        = flag.String("ipfs", getEnv("LTIP_IPFS_ADDR", ""), "IPFS node address for terminate-event anchoring (empty disables anchoring)")
	)
	flag.Parse()

	cfg, err := ltip.LoadConfig(*configPath)
	if err != nil {
		stdlog.Printf("config load warning: %v (falling back to flag/env overrides alone)", err)
	}
	if *tokenID != "" {
		cfg.TokenID = *tokenID
	}
	if *ownerID != "" {
		cfg.OwnerID = *ownerID
	}
	if *cliffDuration != 0 {
		cfg.CliffDuration = *cliffDuration
	}
	if *vestingDuration != 0 {
		cfg.VestingDuration = *vestingDuration
	}

	chainLogger := kitlog.NewLogfmtLogger(os.Stderr)
	chainLogger = kitlog.With(chainLogger, "ts", kitlog.DefaultTimestampUTC, "component", "ltip")

	ft := ledger.NewSimFT()
	engine, lerr := ltip.New(cfg, ft, chainLogger)
	if lerr != nil {
		kitlevel.Error(chainLogger).Log("msg", "invalid config", "err", lerr)
		os.Exit(1)
	}

	if *ipfsAddr != "" {
		engine.SetAnchor(audit.NewAnchor(*ipfsAddr))
	}

	httpLogger := logrus.New()
	httpLogger.SetFormatter(&logrus.JSONFormatter{})

	server := httpapi.NewServer(httpapi.Config{ListenAddr: *addr, Logger: httpLogger}, engine)

	kitlevel.Info(chainLogger).Log("msg", "starting ltip-server", "addr", *addr, "token_id", cfg.TokenID)
	if err := server.Start(); err != nil {
		kitlevel.Error(chainLogger).Log("msg", "server exited", "err", err)
		os.Exit(1)
	}
}
