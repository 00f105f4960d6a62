package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eigerco/arbiter/internal/conflict"
	"github.com/eigerco/arbiter/internal/rpc"
	"github.com/eigerco/arbiter/internal/store"
	"github.com/eigerco/arbiter/pkg/db"
	"github.com/eigerco/arbiter/pkg/db/pebble"
	"github.com/eigerco/arbiter/pkg/log"
	"github.com/eigerco/arbiter/pkg/network/transport"
)

const mb = 1024 * 1024

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the conflict registry server",
		Long: `Run the conflict registry over QUIC. Callers are identified by the
Ed25519 certificate they present. The ledger is kept at storage.path, or in
memory when no path is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("listen", "", "address to listen on")
	cmd.Flags().String("storage", "", "ledger directory; empty keeps the ledger in memory")
	cmd.Flags().StringSlice("authority", nil, "authority identity (repeatable)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	if err := a.cfg.ValidateServe(); err != nil {
		return err
	}
	key, err := a.loadKey()
	if err != nil {
		return err
	}

	kv, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Root.Error().Err(err).Msg("failed to close ledger")
		}
	}()

	ledger := store.NewConflicts(kv)
	defer ledger.Close()

	authorities := make([]conflict.Identity, 0, len(a.cfg.Authorities))
	for _, id := range a.cfg.Authorities {
		authorities = append(authorities, conflict.Identity(id))
	}
	registry := conflict.NewRegistry(ledger, conflict.NewAuthorities(authorities...))

	server, err := transport.NewServer(transport.Config{
		PrivateKey:     key,
		ListenAddr:     a.cfg.Network.ListenAddr,
		CertValidity:   a.cfg.Network.CertValidity,
		RequestTimeout: a.cfg.Network.RequestTimeout,
	}, rpc.NewService(registry))
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}

	count, err := registry.ConflictCount()
	if err != nil {
		_ = server.Stop()
		return err
	}
	log.Root.Info().
		Str("storage", a.cfg.Storage.Path).
		Int("authorities", len(authorities)).
		Str("conflicts", count.String()).
		Msg("arbiter started")

	<-ctx.Done()
	log.Root.Info().Msg("shutting down")
	if err := server.Stop(); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}
	return nil
}

func (a *app) openStore() (db.KVStore, error) {
	if a.cfg.Storage.Path == "" {
		log.Root.Warn().Msg("no storage path configured, ledger is kept in memory")
		return pebble.NewKVStore()
	}
	return pebble.Open(a.cfg.Storage.Path, pebble.Options{
		CacheSize:    int64(a.cfg.Storage.CacheSizeMB) * mb,
		MemTableSize: uint64(a.cfg.Storage.MemTableSizeMB) * mb,
	})
}
