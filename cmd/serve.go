package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/crosstab-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvAddr        string
	srvMaxUploadMB int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chi-square and crosstab engines over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		addr := c.ServeAddr
		if cmd.Flags().Changed("addr") || addr == "" {
			addr = srvAddr
		}
		maxMB := c.MaxUploadMB
		if cmd.Flags().Changed("max-upload-mb") && srvMaxUploadMB > 0 {
			maxMB = srvMaxUploadMB
		}
		p, err := newPipeline()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(server.Config{Addr: addr, MaxUploadMB: maxMB}, p, logger).ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", ":8080", "listen address (overrides config)")
	serveCmd.Flags().IntVar(&srvMaxUploadMB, "max-upload-mb", 0, "upload size cap in MiB (overrides config)")
}
