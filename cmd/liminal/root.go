package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liminalbooks/liminal/internal/logging"
)

var (
	cfgFile string
	dataDir string
	debug   bool
	rootCmd = &cobra.Command{
		Use:           "liminal",
		Short:         "liminal writes and edits learning books with a language model",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

// Execute runs the root command.
func Execute() error {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default ~/.liminal/config.json)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding projects and the database")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return fmt.Errorf("bind config flag: %w", err)
	}
	if err := viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir")); err != nil {
		return fmt.Errorf("bind data-dir flag: %w", err)
	}
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Init(debug)
	}
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(expandCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(pageCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func initConfig() {
	// A missing .env file is the common case.
	_ = godotenv.Load()

	viper.SetEnvPrefix("LIMINAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".liminal", "config.json")
	}
	return filepath.Join(home, ".liminal", "config.json")
}
