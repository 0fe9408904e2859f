package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/conf/v3"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coreblock/node/foundation/blockstore"
	"github.com/coreblock/node/foundation/events"
	"github.com/coreblock/node/foundation/genesis"
	"github.com/coreblock/node/foundation/hash"
	"github.com/coreblock/node/foundation/logger"
	"github.com/coreblock/node/foundation/node"
)

// build is the git version of this program. It can be set at build time with -ldflags "-X main.build=...".
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

// config is all the configuration for the application with the default
// values. The genesis hash fields arrive as 64-char hex strings and are
// validated before the node starts.
type config struct {
	conf.Version
	Node struct {
		URI        string   `conf:"default:tcp://0.0.0.0:9080" validate:"required,startswith=tcp://"`
		KnownPeers []string `conf:"default:tcp://0.0.0.0:9180"`
		Backend    string   `conf:"default:memory" validate:"oneof=memory disk"`
		DBPath     string   `conf:"default:zblock/blocks.db"`
	}
	Genesis struct {
		Timestamp     uint64 `conf:"default:1700000000" validate:"required"`
		Nonce         uint64 `conf:"default:33"`
		ParentHash    string `conf:"default:0000000000000000000000000000000000000000000000000000000000000000" validate:"len=64,hexadecimal"`
		ContentHash   string `conf:"default:880826fd74b01fc9f1ff2b3d0d3eee747f34ed809a8988b55bcf24c3fa31b82a" validate:"len=64,hexadecimal"`
		ComponentHash string `conf:"default:ccd5ed3ae0118a1c9ab1b18ad7928d96bcb8a2a1823acb1b574c9461b69b4ea9" validate:"len=64,hexadecimal"`
		Hash          string `conf:"default:0051d9e75791907116d98c84f4ab639c7eb57e2681faabe009e6cc08f872c5a7" validate:"len=64,hexadecimal"`
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := config{
		Version: conf.Version{
			Build: build,
			Desc:  "peer to peer chain node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// Reject a malformed configuration before anything binds or opens.
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Genesis Support

	gen, err := parseGenesis(cfg)
	if err != nil {
		return fmt.Errorf("parsing genesis: %w", err)
	}

	// =========================================================================
	// Block Store Support

	store, err := blockstore.Open(cfg.Node.Backend, cfg.Node.DBPath)
	if err != nil {
		return fmt.Errorf("opening block store: %w", err)
	}
	defer store.Close()

	// =========================================================================
	// Node Support

	// The chain packages accept a function of this signature to allow the
	// application to log. These raw messages also flow into the events
	// package so a live observer can tail node activity.
	evts := events.New()
	defer evts.Shutdown()

	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s)
		evts.Send(s)
	}

	n, err := node.Start(node.Config{
		URI:       cfg.Node.URI,
		Genesis:   gen,
		Store:     store,
		EvHandler: ev,
	})
	if err != nil {
		return fmt.Errorf("starting node: %w", err)
	}
	defer n.Shutdown()

	log.Infow("startup", "status", "node started", "uri", cfg.Node.URI, "listen", n.ListenAddress())

	// Dial out to every known peer. A refused dial is only a warning;
	// the remote node may come up later and dial us instead.
	for _, peerURI := range cfg.Node.KnownPeers {
		if peerURI == cfg.Node.URI {
			continue
		}
		n.Connect(peerURI)
	}

	// =========================================================================
	// Shutdown

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	sig := <-shutdown
	log.Infow("shutdown", "status", "shutdown started", "signal", sig)
	defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

	return nil
}

// parseGenesis converts the hex-string genesis fields from the
// configuration into the injected genesis value.
func parseGenesis(cfg config) (genesis.Genesis, error) {
	parentHash, err := hash.FromString(cfg.Genesis.ParentHash)
	if err != nil {
		return genesis.Genesis{}, err
	}
	contentHash, err := hash.FromString(cfg.Genesis.ContentHash)
	if err != nil {
		return genesis.Genesis{}, err
	}
	componentHash, err := hash.FromString(cfg.Genesis.ComponentHash)
	if err != nil {
		return genesis.Genesis{}, err
	}
	blockHash, err := hash.FromString(cfg.Genesis.Hash)
	if err != nil {
		return genesis.Genesis{}, err
	}

	return genesis.Genesis{
		Timestamp:     cfg.Genesis.Timestamp,
		Nonce:         cfg.Genesis.Nonce,
		ParentHash:    parentHash,
		ContentHash:   contentHash,
		ComponentHash: componentHash,
		Hash:          blockHash,
	}, nil
}
