package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/KaramelBytes/segmenta/internal/config"
	"github.com/KaramelBytes/segmenta/internal/logging"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Segmenta configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "default_k: %d\n", c.DefaultK)
		fmt.Fprintf(out, "k_min: %d\n", c.KMin)
		fmt.Fprintf(out, "k_max: %d\n", c.KMax)
		fmt.Fprintf(out, "seed: %d\n", c.Seed)
		fmt.Fprintf(out, "restarts: %d\n", c.Restarts)
		fmt.Fprintf(out, "max_iter: %d\n", c.MaxIter)
		fmt.Fprintf(out, "listen_addr: %s\n", c.ListenAddr)
		fmt.Fprintf(out, "max_upload_mb: %d\n", c.MaxUploadMB)
		fmt.Fprintf(out, "session_ttl_min: %d\n", c.SessionTTLMin)
		if c.RedisAddr != "" {
			fmt.Fprintf(out, "redis_addr: %s\n", c.RedisAddr)
			fmt.Fprintf(out, "redis_db: %d\n", c.RedisDB)
			fmt.Fprintf(out, "redis_key_ttl_sec: %d\n", c.RedisKeyTTLSec)
		}
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := currentConfig()
		if err != nil {
			return err
		}
		next := *c
		if err := setKey(&next, key, val); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		*c = next
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setKey(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid int for %s: %w", key, err)
		}
		return i, nil
	}
	var err error
	switch key {
	case "default_k":
		c.DefaultK, err = atoi()
	case "k_min":
		c.KMin, err = atoi()
	case "k_max":
		c.KMax, err = atoi()
	case "seed":
		c.Seed, err = strconv.ParseUint(val, 10, 64)
		if err != nil {
			err = fmt.Errorf("invalid seed: %w", err)
		}
	case "restarts":
		c.Restarts, err = atoi()
	case "max_iter":
		c.MaxIter, err = atoi()
	case "listen_addr":
		c.ListenAddr = val
	case "max_upload_mb":
		c.MaxUploadMB, err = atoi()
	case "session_ttl_min":
		c.SessionTTLMin, err = atoi()
	case "redis_addr":
		c.RedisAddr = val
	case "redis_db":
		c.RedisDB, err = atoi()
	case "redis_key_ttl_sec":
		c.RedisKeyTTLSec, err = atoi()
	case "log_level":
		if _, err = logging.ParseLevel(val); err == nil {
			c.LogLevel = val
		}
	case "log_format":
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s (valid keys: %v)", key, cfgpkg.Keys)
	}
	return err
}
