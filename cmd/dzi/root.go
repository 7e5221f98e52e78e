package main

import (
	"fmt"
	"log"
	"os"

	"code.cloudfoundry.org/bytefmt"
	"github.com/BurntSushi/toml"
	"github.com/greut/dzi/server"
	"github.com/mitchellh/colorstring"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dzi",
	Short: "Deep Zoom gallery server and tools",
	Long: `dzi serves a gallery of Deep Zoom images along with their viewers
and tiles, and inspects or checks Deep Zoom descriptors.

Every flag can also be given as an environment variable prefixed with DZI_,
for example DZI_PORT=8080.

Examples:
  # Serve the gallery described by config.toml
  dzi serve --config config.toml

  # Print the tiling parameters of a descriptor
  dzi inspect images/nebula.dzi

  # Look for missing tiles
  dzi check --config config.toml`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "config.toml", "configuration file")
	rootCmd.PersistentFlags().String("images", "", "images directory (overrides the configuration)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colors")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("images", rootCmd.PersistentFlags().Lookup("images"))
	viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
}

// initConfig reads in ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("dzi")
	viper.AutomaticEnv()
}

// loadConfig reads the toml file then applies the flags and the environment.
func loadConfig() (*server.Config, error) {
	configFile := viper.GetString("config")

	var config server.Config
	log.Println(fmt.Sprintf("Reading configuration from %s", configFile))
	if _, err := toml.DecodeFile(configFile, &config); err != nil {
		return nil, err
	}

	if viper.IsSet("host") {
		config.Host = viper.GetString("host")
	}
	if viper.IsSet("port") {
		config.Port = viper.GetInt("port")
	}
	if viper.IsSet("images") {
		config.Images = viper.GetString("images")
	}
	if viper.IsSet("templates") {
		config.Templates = viper.GetString("templates")
	}

	var err error
	if config.Cache.DescriptorsSize, err = cacheSize(config.Cache.Descriptors); err != nil {
		return nil, fmt.Errorf("cache.descriptors: %w", err)
	}
	if config.Cache.TilesSize, err = cacheSize(config.Cache.Tiles); err != nil {
		return nil, fmt.Errorf("cache.tiles: %w", err)
	}

	return &config, nil
}

// cacheSize reads a human size such as "64M", empty meaning no cache.
func cacheSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	size, err := bytefmt.ToBytes(s)
	return int64(size), err
}

// colorize outputs colors only to a terminal.
func colorize() colorstring.Colorize {
	return colorstring.Colorize{
		Colors:  colorstring.DefaultColors,
		Disable: viper.GetBool("no-color") || !term.IsTerminal(int(os.Stdout.Fd())),
		Reset:   true,
	}
}
