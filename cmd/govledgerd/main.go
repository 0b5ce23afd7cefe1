// Command govledgerd is the node process: it loads configuration, wires the
// ledger and its registries together, and starts replication. There is no
// HTTP/REST surface, dashboard, or CLI here (spec.md §1's stated
// non-goals) — operators interact with the node exclusively through the
// replication protocol and by embedding the packages under this module.
// Grounded on cmd/p2pd/main.go's wiring idiom: flag parsing, config load,
// structured logger setup, component construction, then a long-running
// goroutine with a blocking select.
package main

import (
	"encoding/pem"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"govledger/audit"
	"govledger/config"
	"govledger/crypto"
	"govledger/governance"
	"govledger/identity"
	"govledger/ledger"
	"govledger/observability/logging"
	"govledger/petition"
	"govledger/replication"
	"govledger/voting"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := os.Getenv("GOVLEDGER_ENV")
	logger := logging.Setup("govledgerd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to prepare data directory", slog.Any("error", err))
		os.Exit(1)
	}

	chain, err := openOrCreateLedger(cfg)
	if err != nil {
		logger.Error("failed to open ledger", slog.Any("error", err))
		os.Exit(1)
	}

	identities := identity.New(chain)
	proposals := governance.New(chain, identities)
	petitions := petition.New(chain, identities, proposals)
	votingMgr := voting.NewManager(chain, identities, proposals)
	auditor := audit.New(chain, identities, proposals, petitions, votingMgr)
	_ = auditor

	nodeID, err := loadOrCreateNodeID(cfg.DataDir)
	if err != nil {
		logger.Error("failed to load node identity", slog.Any("error", err))
		os.Exit(1)
	}

	node := replication.NewNode(nodeID, cfg.ListenAddress, chain)

	if cfg.SeedListPath != "" {
		seedList, err := replication.LoadSeedList(cfg.SeedListPath)
		if err != nil {
			logger.Warn("failed to load seed list", slog.Any("error", err))
		} else {
			for _, addr := range seedList.Addresses() {
				if dialErr := node.Dial(addr); dialErr != nil {
					logger.Warn("failed to dial seed", slog.String("address", addr), slog.Any("error", dialErr))
				}
			}
		}
	}

	for _, addr := range cfg.BootstrapPeers {
		if dialErr := node.Dial(addr); dialErr != nil {
			logger.Warn("failed to dial bootstrap peer", slog.String("address", addr), slog.Any("error", dialErr))
		}
	}

	go func() {
		if err := node.ListenAndServe(); err != nil {
			logger.Error("replication listener stopped", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	logger.Info("govledgerd initialised and running",
		slog.String("nodeId", nodeID),
		slog.String("listenAddress", cfg.ListenAddress),
		slog.Int("difficulty", cfg.Difficulty),
	)
	select {}
}

// openOrCreateLedger loads the ledger's exported JSON from cfg.DataDir, or
// mines a fresh genesis block if none exists yet (spec.md §6).
func openOrCreateLedger(cfg *config.Config) (*ledger.Ledger, error) {
	path := filepath.Join(cfg.DataDir, "ledger.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ledger.New(cfg.Difficulty)
	}
	if err != nil {
		return nil, err
	}
	return ledger.FromJSON(data)
}

// loadOrCreateNodeID reads a persisted Ed25519 node key from dataDir, or
// generates and persists a fresh one, returning its fingerprint as the
// replication node's id.
func loadOrCreateNodeID(dataDir string) (string, error) {
	path := filepath.Join(dataDir, "node_key.pem")
	if data, err := os.ReadFile(path); err == nil {
		block, _ := pem.Decode(data)
		if block != nil {
			return crypto.FingerprintPublicKey(string(data))
		}
	}

	pub, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(pub), 0o600); err != nil {
		return "", err
	}
	return crypto.FingerprintPublicKey(pub)
}
