package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/greut/dzi/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gallery, the viewers and the tiles",
	Long: `Serve the gallery configured in the toml file.

Descriptors and tiles go through groupcache; list the other servers under
[cache] peers to share it.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "host name to listen on (overrides the configuration)")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (overrides the configuration)")
	serveCmd.Flags().String("templates", "", "templates directory (overrides the configuration)")

	viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("templates", serveCmd.Flags().Lookup("templates"))
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	handler, err := server.NewHandler(config)
	if err != nil {
		return err
	}

	if len(config.Cache.Peers) > 0 {
		self := fmt.Sprintf("http://%s:%d", config.Host, config.Port)
		handler = server.WithPeers(handler, self, config.Cache.Peers...)
		log.Println(fmt.Sprintf("Sharing caches with %v", config.Cache.Peers))
	}

	listen := fmt.Sprintf("%v:%v", config.Host, config.Port)
	log.Println(fmt.Sprintf("Server running on %v with %d images", listen, len(config.Gallery)))
	return http.ListenAndServe(listen, handler)
}
