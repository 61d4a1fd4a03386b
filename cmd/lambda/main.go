package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"choiceview-connect/internal/app"
	"choiceview-connect/internal/config"
	"choiceview-connect/internal/workflow"
	"choiceview-connect/pkg/logger"

	"github.com/aws/aws-lambda-go/lambda"
)

// dispatcher is the part of the router the Lambda handler needs.
type dispatcher interface {
	Handle(ctx context.Context, payload []byte) (*workflow.Result, error)
}

type handler struct {
	router dispatcher
	log    *slog.Logger
}

// Handle serves one Amazon Connect contact-flow invocation.
func (h handler) Handle(ctx context.Context, event json.RawMessage) (*workflow.Result, error) {
	return h.router.Handle(logger.With(ctx, h.log), event)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := app.Logger(cfg)
	a := app.New(logger.With(context.Background(), log), cfg)

	lambda.Start(handler{router: a.Router, log: log}.Handle)
}
