// Package main runs the caption API as an AWS Lambda behind API Gateway
// (HTTP API, payload v2). Dependencies are wired once per cold start.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/caption-studio/internal/awsboot"
	"github.com/fpang/caption-studio/internal/config"
	"github.com/fpang/caption-studio/internal/logging"
)

var handler http.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.OriginVerifySecret == "" {
		log.Warn().Msg("ORIGIN_VERIFY_SECRET not set, origin verification disabled")
	}

	app := awsboot.Wire(context.Background(), cfg)
	handler = app.Handler()

	awsboot.StartupLog("caption-lambda", initStart, cfg).
		CommitHash(commitHash).
		BuildTime(buildTime).
		Log()
}

func main() {
	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
