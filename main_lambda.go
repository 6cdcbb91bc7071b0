//go:build lambda

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"workshop-optimizer/internal/config"
	"workshop-optimizer/internal/gateway"
	"workshop-optimizer/internal/island"
	"workshop-optimizer/internal/search"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

type optimizeRequest struct {
	Island     json.RawMessage `json:"island"`
	MaxResults int             `json:"maxResults"`
}

type optimizeResult struct {
	Results []gateway.Plan `json:"results"`
	TimeMs  int64          `json:"timeMs"`
	Detail  string         `json:"detail"`
}

// shared is built once per container and reused across invocations.
var shared *app

func handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(400, "invalid base64 body")
		}
		body = string(decoded)
	}

	var req optimizeRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errResp(400, "invalid JSON: "+err.Error())
	}
	if req.MaxResults < 0 {
		return errResp(400, "maxResults must not be negative")
	}
	limit := req.MaxResults
	if limit == 0 {
		limit = shared.cfg.MaxResults
	}

	is, err := island.FromJSON(req.Island, shared.data, shared.logger)
	if err != nil {
		return errResp(400, err.Error())
	}

	start := time.Now()
	plans, err := shared.plan(ctx, is, limit)
	if err != nil {
		if errors.Is(err, search.ErrInvalidRequest) {
			return errResp(400, err.Error())
		}
		return errResp(500, err.Error())
	}

	resp := optimizeResult{
		Results: plans,
		TimeMs:  time.Since(start).Milliseconds(),
		Detail:  FormatResult(plans),
	}
	respJSON, _ := json.Marshal(resp)
	return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: jsonHeader, Body: string(respJSON)}, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func main() {
	config.BindEnv()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := newLogger(os.Stderr, "json", cfg.Verbose)
	slog.SetDefault(logger)

	shared, err = newApp(cfg, logger)
	if err != nil {
		logger.Error("startup", "err", err)
		os.Exit(1)
	}
	lambda.Start(handler)
}
