package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/caption-studio/internal/awsboot"
	"github.com/fpang/caption-studio/internal/config"
	"github.com/fpang/caption-studio/internal/logging"
)

// CLI flags
var (
	portFlag  int
	modelFlag string
	storeFlag string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:   "caption-server",
	Short: "HTTP server that captions uploaded photos",
	Long: `Caption Server accepts photo uploads, asks Gemini for a first-person
social media caption, stores the photo in S3 and saves the post.

Configuration comes from the environment (MEDIA_BUCKET_NAME, POSTS_TABLE_NAME,
GEMINI_API_KEY or SSM_API_KEY_PARAM, ...). Flags override the matching
variables.

Examples:
  caption-server
  caption-server --port 8080
  caption-server --store memory --model gemini-2.5-pro`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 3000, "Port to listen on (overrides PORT)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model to use (overrides GEMINI_MODEL)")
	rootCmd.Flags().StringVar(&storeFlag, "store", "", "Post store: dynamo or memory (overrides POST_STORE)")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "Environment file for local runs (ignored when missing)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = portFlag
	}
	if modelFlag != "" {
		cfg.GeminiModel = modelFlag
	}
	if storeFlag != "" {
		postStore, err := config.ParseStore(storeFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --store flag")
		}
		cfg.PostStore = postStore
	}

	app := awsboot.Wire(context.Background(), cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      app.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	awsboot.StartupLog("caption-server", initStart, cfg).
		CommitHash(commitHash).
		BuildTime(buildTime).
		Config("port", fmt.Sprint(cfg.Port)).
		Log()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Shutdown did not complete cleanly")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Starting caption server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
