package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"dedoppel/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve RESULT.json",
	Short: "Serve a browsable report for a saved find result",
	Long: `Start a local web server that renders a saved find result as an HTML
report with image previews, so matches can be reviewed in a browser.
Only images named in the result file are served.

Examples:
  dedoppel find -d 8 -r originals -o dupes.json ~/backup
  dedoppel serve dupes.json
  dedoppel serve --port 9090 dupes.json`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "127.0.0.1", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	server, err := web.New(args[0])
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", mustGetString(cmd, "host"), mustGetInt(cmd, "port"))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signalContext()
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		fmt.Printf("Serving report on http://%s\n", addr)
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}
}
