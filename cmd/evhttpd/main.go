// Command evhttpd runs an evhttp.Server standalone, for manual testing
// and as a worked example of the embedding API. Its handler is fixed
// and trivial — real embedders link the library into their own binary
// and supply their own Handler.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/corewire/evhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := buildCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "evhttpd",
		Short: "Run an embeddable HTTP/1.1 server standalone",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.Int("port", 8080, "TCP port to listen on")
	flags.Int("max-pending-connections", 128, "listen(2) backlog")
	flags.Int("max-concurrent-connections", 0, "soft cap on active connections, 0 = unbounded")
	flags.Int("inactive-timeout-seconds", 60, "idle connection timeout in seconds")
	flags.Bool("external-logging", false, "write logs to --log-file instead of stdout")
	flags.String("log-file", "evhttpd.log", "log file path, used when --external-logging is set")
	flags.String("config", "", "path to an evhttpd.yaml config file (optional)")

	v.BindPFlags(flags)
	v.SetEnvPrefix("EVHTTPD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if path := v.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("reading config file: %w", err)
			}
		}
		return nil
	}

	return cmd
}

func run(v *viper.Viper) error {
	cfg := evhttp.Config{
		Port:                             v.GetInt("port"),
		MaxPendingConnections:            v.GetInt("max-pending-connections"),
		MaxConcurrentConnections:         v.GetInt("max-concurrent-connections"),
		InactiveConnectionTimeoutSeconds: v.GetInt("inactive-timeout-seconds"),
		ExternalLogging:                  v.GetBool("external-logging"),
		LogFilePath:                      v.GetString("log-file"),
	}

	srv, err := evhttp.New(cfg, helloHandler)
	if err != nil {
		return err
	}
	return srv.Start()
}

func helloHandler(req *evhttp.Request, resp *evhttp.Response) {
	if req.Method != "GET" {
		resp.StatusCode = 405
		return
	}
	resp.StatusCode = 200
	resp.SetHeader("Content-Type", "text/plain")
	resp.Body = []byte("evhttpd is running\n")
}
