// Package cmd implements the genesis command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/internal/config"
	"github.com/baihaki00/sentra-sub000/internal/kernel"
	"github.com/baihaki00/sentra-sub000/internal/observability"
	"github.com/baihaki00/sentra-sub000/internal/store"
)

type contextKey string

const configKey contextKey = "config"

// Execute builds the root command and runs it with ctx.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		return err
	}
	return nil
}

// NewRootCommand returns a fresh command tree. Each call is independent so
// tests and repeated invocations do not share flag state.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:     "genesis",
		Short:   "Genesis is a conversational kernel that learns an associative memory.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "genesis"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting genesis", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, false)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	root.PersistentFlags().String("data-dir", "", "directory holding memory and templates")
	root.PersistentFlags().Uint64("seed", 0, "seed for response selection (0 picks one from the clock)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newChatCmd(),
		newSayCmd(),
		newTeachCmd(),
		newReflectCmd(),
		newStatsCmd(),
		newVersionCmd(),
	)
	return root
}

// initializeConfig reads the config file, GENESIS_* environment variables
// and the persistent flags into v.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("GENESIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	flags := cmd.Flags()
	if f := flags.Lookup("data-dir"); f != nil && f.Changed {
		v.Set("kernel.data_dir", f.Value.String())
	}
	if f := flags.Lookup("seed"); f != nil && f.Changed {
		seed, err := flags.GetUint64("seed")
		if err != nil {
			return err
		}
		v.Set("kernel.rng_seed", seed)
	}
	return nil
}

func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not found in context")
	}
	return cfg, nil
}

// session is an opened kernel and the store behind it.
type session struct {
	kernel *kernel.Kernel
	store  store.SnapshotStore
	log    *zap.Logger
}

// openSession loads the kernel configured in ctx.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}
	logger := observability.GetLogger()
	st, err := store.Open(ctx, cfg.Store(), cfg.Kernel().MemoryPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}
	k := kernel.New(cfg, st, logger)
	if err := k.Load(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return &session{kernel: k, store: st, log: logger}, nil
}

// close stops the kernel, saves what changed and releases the store. The
// save uses a fresh context so an interrupt still persists memory.
func (s *session) close() error {
	s.kernel.Stop()
	defer s.store.Close()
	if !s.kernel.Dirty() {
		return nil
	}
	return s.kernel.Save(context.Background())
}
