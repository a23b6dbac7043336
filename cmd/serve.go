package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cmg777/nightlights/internal/region"
	"github.com/cmg777/nightlights/internal/server"
	"github.com/cmg777/nightlights/internal/store"
)

var (
	servePort      int
	serveVector    string
	serveVectorCRS string
	serveIDField   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored runs and point lookups over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		var idx *region.Index
		if serveVector != "" {
			regions, err := region.ReadShapefile(serveVector, region.ShapefileOptions{
				IDField: serveIDField,
				CRS:     serveVectorCRS,
			})
			if err != nil {
				return err
			}
			idx = region.NewIndex(regions)
			zap.L().Info("region index loaded", zap.Int("regions", idx.Size()))
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.New(st, idx).Router(cfg.Server.AllowedOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveVector, "vector", "", "shapefile to load for /locate lookups")
	serveCmd.Flags().StringVar(&serveVectorCRS, "vector-crs", "EPSG:4326", "CRS of the shapefile")
	serveCmd.Flags().StringVar(&serveIDField, "id-field", "", "attribute field holding the region id")
	rootCmd.AddCommand(serveCmd)
}
