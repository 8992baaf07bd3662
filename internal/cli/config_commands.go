package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hrhgit/loginweb-cli/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage loginweb configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			fmt.Printf("platform_url: %s\n", cfg.PlatformURL)
			fmt.Printf("api_key:      %s\n", maskKey(cfg.APIKey))
			fmt.Printf("event_id:     %s\n", cfg.EventID)
			fmt.Printf("proxy mode:   %s\n", cfg.ProxyMode)
			if cfg.ProxyHost != "" {
				fmt.Printf("proxy host:   %s:%d\n", cfg.ProxyHost, cfg.ProxyPort)
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Set a configuration value",
		Long: `Set a configuration value and save the config file.

Keys: platform_url, api_key, event_id, proxy.mode, proxy.host, proxy.port,
proxy.user, proxy.no_proxy

When setting api_key without a value the key is prompted for without echo.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			key := args[0]
			var value string
			if len(args) == 2 {
				value = args[1]
			} else if key == "api_key" {
				value, err = promptSecret("API key")
				if err != nil {
					return err
				}
			} else {
				return fmt.Errorf("missing value for %s", key)
			}

			switch key {
			case "platform_url":
				cfg.PlatformURL = value
			case "api_key":
				cfg.APIKey = value
			case "event_id":
				cfg.EventID = value
			case "proxy.mode":
				cfg.ProxyMode = value
			case "proxy.host":
				cfg.ProxyHost = value
			case "proxy.port":
				port, err := strconv.Atoi(value)
				if err != nil {
					return fmt.Errorf("invalid port %q", value)
				}
				cfg.ProxyPort = port
			case "proxy.user":
				cfg.ProxyUser = value
			case "proxy.no_proxy":
				cfg.NoProxy = value
			default:
				return fmt.Errorf("unknown config key %q", key)
			}

			if err := config.Save(cfg, cfgFile); err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", key)
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}
			fmt.Println(path)
			return nil
		},
	}
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
