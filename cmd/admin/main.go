package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clinic-manager/internal/app"
	"clinic-manager/internal/core/config"
	"clinic-manager/internal/core/logger"
)

const startupTimeout = 30 * time.Second

// cli 子命令共享的配置入口；测试替换 load
type cli struct {
	cfgPath string
	load    func(path string) (*config.Config, error)
	log     *zap.Logger
}

func (c *cli) config() (*config.Config, error) {
	cfg, err := c.load(c.cfgPath)
	if err != nil {
		return nil, err
	}
	if c.log == nil {
		c.log, _ = logger.FromConfig(cfg.Log)
	}
	return cfg, nil
}

// open 完整装配（schema 探测 + identity），调用方负责 Close
func (c *cli) open(ctx context.Context) (*app.App, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	return app.New(ctx, cfg, c.log)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "clinic-admin",
		Short:         "Clinic manager administration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.cfgPath, "config", os.Getenv("CONFIG_PATH"), "config file path")

	root.AddCommand(migrateCmd(c))
	root.AddCommand(seedRolesCmd(c))
	root.AddCommand(accountCmd(c))
	root.AddCommand(listCmd(c))
	root.AddCommand(purgeCmd(c))
	root.AddCommand(shellCmd(c))
	return root
}

func main() {
	_ = godotenv.Load()
	c := &cli{load: config.Read}
	if err := newRootCmd(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
