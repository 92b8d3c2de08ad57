package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iamkucuk/photo-annotation-tool/api/core"
	"github.com/iamkucuk/photo-annotation-tool/config"
	"github.com/iamkucuk/photo-annotation-tool/internal/annotations"
	"github.com/iamkucuk/photo-annotation-tool/internal/imagestore"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the annotation web server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()

	if err := os.MkdirAll(cfg.DataDir, os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	imageStore, err := imagestore.New(cfg.ResolvedUploadDir(), imagestore.Config{
		MaxFileSize:      int64(cfg.UploadMaxSizeMB) << 20,
		ThumbnailMaxPx:   cfg.ThumbnailMaxPx,
		ThumbnailQuality: cfg.ThumbnailQuality,
	})
	if err != nil {
		log.Fatalf("Failed to initialize image store: %v", err)
	}

	annotationStore, err := annotations.NewStore(cfg.ResolvedAnnotationsFile())
	if err != nil {
		log.Fatalf("Failed to initialize annotation store: %v", err)
	}
	if err := annotationStore.Initialize(); err != nil {
		log.Fatalf("Failed to initialize annotation store: %v", err)
	}

	deps := &core.ServerDependencies{
		Config:      cfg,
		Images:      imageStore,
		Annotations: annotationStore,
	}

	server, cleanup := core.StartServer(deps)
	go func() {
		log.Printf("Server started on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cleanup != nil {
		cleanup()
	}

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited successfully")
}
