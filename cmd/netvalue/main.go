package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/netvalue/internal/profile"
	"github.com/hrygo/netvalue/server"
	"github.com/hrygo/netvalue/server/runner/recalc"
	"github.com/hrygo/netvalue/server/stats"
	"github.com/hrygo/netvalue/store"
	"github.com/hrygo/netvalue/store/db"
)

const version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:           "netvalue",
		Short:         "Connection graph store with network value propagation.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(&profile.Profile{Mode: viper.GetString("mode")})
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background recalculation runner.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print graph and network value statistics.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printStats(cmd.Context(), cmd)
		},
	}

	recalculateCmd = &cobra.Command{
		Use:   "recalculate",
		Short: "Run one full recalculation and print its summary as JSON.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return recalculate(cmd.Context(), cmd)
		},
	}
)

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)

	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver, sqlite or postgres")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("netvalue")
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, recalculateCmd, statsCmd)
}

func setupLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		level := slog.LevelInfo
		if p.Mode == "dev" {
			level = slog.LevelDebug
		}
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version,
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	return p, nil
}

func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	storeInstance := store.New(dbDriver, p)
	if err := storeInstance.Migrate(ctx); err != nil {
		storeInstance.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}
	return storeInstance, nil
}

func serve(ctx context.Context) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	storeInstance, err := openStore(ctx, p)
	if err != nil {
		return err
	}

	s, err := server.NewServer(ctx, p, storeInstance)
	if err != nil {
		storeInstance.Close()
		return errors.Wrap(err, "failed to create server")
	}
	if err := s.Start(ctx); err != nil {
		storeInstance.Close()
		return errors.Wrap(err, "failed to start server")
	}
	printGreetings(p)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown(context.Background())
		return nil
	})
	return g.Wait()
}

func recalculate(ctx context.Context, cmd *cobra.Command) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	storeInstance, err := openStore(ctx, p)
	if err != nil {
		return err
	}
	defer storeInstance.Close()

	runner := recalc.NewRunner(storeInstance, server.RunnerConfig(p))
	summary, err := runner.RecalculateAll(ctx)
	if summary != nil {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if encodeErr := encoder.Encode(summary); encodeErr != nil {
			return errors.Wrap(encodeErr, "failed to print summary")
		}
	}
	if err != nil {
		return errors.Wrap(err, "recalculation failed")
	}
	if summary.FailedChunks > 0 {
		return errors.Errorf("recalculation finished with %d failed chunks", summary.FailedChunks)
	}
	return nil
}

func printStats(ctx context.Context, cmd *cobra.Command) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	storeInstance, err := openStore(ctx, p)
	if err != nil {
		return err
	}
	defer storeInstance.Close()

	s, err := stats.NewCollector(storeInstance, stats.DefaultMaxAge).GetStats(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to collect statistics")
	}
	fmt.Fprintln(cmd.OutOrStdout(), s.Summary())
	return nil
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("netvalue %s started successfully!\n", version)
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("Mode: %s\n", p.Mode)
	if p.Addr == "" {
		fmt.Printf("Server running on port %d\n", p.Port)
	} else {
		fmt.Printf("Server running at %s:%d\n", p.Addr, p.Port)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("netvalue failed", "error", err)
		stop()
		os.Exit(1)
	}
}
