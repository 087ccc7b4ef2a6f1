package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Neelbiehler/qryvanta-sub003/agent"
	"github.com/Neelbiehler/qryvanta-sub003/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}

type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "sqlite", "implementation of underline storage (redis, sqlite, memory)")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "qryvanta", "namespace used in redis storage")
	cmd.Flags().String("sqlite-path", "workflows.db", "path of the sqlite database file")
	cmd.Flags().Int("executor-capacity", 512, "run executor queue capacity")
	cmd.Flags().Int("executor-workers", 8, "number of concurrent run executors")
	cmd.Flags().Int("attempt-timeout", 30, "per attempt timeout in seconds")
	cmd.Flags().String("schedule-spec", "", "cron spec for schedule_tick triggers, empty disables")
	cmd.Flags().String("schedule-tenants", "default", "comma separated tenants receiving schedule ticks")
	cmd.Flags().Int("event-dedup-ttl", 300, "record event dedupe window in seconds")
	cmd.Flags().Int("stale-run-threshold", 3600, "seconds after which a running run is eligible for reconcile")
	cmd.Flags().Int("stale-scan-interval", 300, "interval in seconds for the stale run scan, 0 disables")
	cmd.Flags().String("record-store-url", "", "base url of the runtime record store, empty uses the in-memory store")
	cmd.Flags().String("api-token", "", "static bearer token for the rest api, empty disables auth")
	cmd.Flags().String("analytics-file", "", "file for the step analytics collector, empty disables")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.SqliteConfig.Path = viper.GetString("sqlite-path")
	c.cfg.RunExecutorCapacity = viper.GetInt("executor-capacity")
	c.cfg.RunExecutorWorkers = viper.GetInt("executor-workers")
	c.cfg.AttemptTimeoutSeconds = viper.GetInt("attempt-timeout")
	c.cfg.ScheduleSpec = viper.GetString("schedule-spec")
	c.cfg.ScheduleTenants = strings.Split(viper.GetString("schedule-tenants"), ",")
	c.cfg.EventDedupTTLSeconds = viper.GetInt("event-dedup-ttl")
	c.cfg.StaleRunSeconds = viper.GetInt("stale-run-threshold")
	c.cfg.StaleScanSeconds = viper.GetInt("stale-scan-interval")
	c.cfg.RecordStoreUrl = viper.GetString("record-store-url")
	c.cfg.ApiToken = viper.GetString("api-token")
	c.cfg.AnalyticsFile = viper.GetString("analytics-file")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "qryvanta-workflowd",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
