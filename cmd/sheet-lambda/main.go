// Command sheet-lambda serves the logging endpoint from AWS Lambda behind an
// API Gateway HTTP API.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"google.golang.org/api/option"

	"github.com/talmzip/awwwe-feedback-form/cmd/mainconfig"
	appconfig "github.com/talmzip/awwwe-feedback-form/internal/config"
	"github.com/talmzip/awwwe-feedback-form/internal/sheet"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	service, err := newService(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize sheet lambda", "error", err)
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, service, logger, evt)
	})
}

func newService(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*sheet.Service, error) {
	if cfg.SheetBackend == appconfig.BackendDynamoDB && cfg.DynamoDBSubmissionsTable == "" {
		return nil, fmt.Errorf("DYNAMODB_SUBMISSIONS_TABLE is required")
	}
	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		awsCfg = &loaded
	}

	var appender sheet.Appender
	switch cfg.SheetBackend {
	case appconfig.BackendDynamoDB:
		appender = sheet.NewDynamoAppender(dynamodb.NewFromConfig(*awsCfg), cfg.DynamoDBSubmissionsTable)
	case appconfig.BackendSheets:
		var opts []option.ClientOption
		if cfg.GoogleCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
		}
		sa, err := sheet.NewSheetsAppender(ctx, cfg.GoogleSheetsSpreadsheetID, cfg.GoogleSheetsRange, opts...)
		if err != nil {
			return nil, err
		}
		appender = sa
	case appconfig.BackendMemory:
		logger.Warn("memory backend in lambda: rows are lost when the instance is recycled")
		appender = sheet.NewMemoryAppender()
	default:
		return nil, fmt.Errorf("sheet backend %q is not supported in lambda", cfg.SheetBackend)
	}
	appender = mainconfig.WrapAppender(appender, cfg, awsCfg, logger)
	return sheet.NewService(appender, cfg.SheetBackend, logger, nil), nil
}

type statusBody struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func handle(ctx context.Context, service *sheet.Service, logger *logging.Logger, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}

	switch path {
	case "", "/", "/sheet/submissions":
	default:
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}

	switch method {
	case http.MethodOptions:
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNoContent, Headers: endpointHeaders()}, nil
	case http.MethodPost:
	default:
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed, Headers: endpointHeaders()}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return respond(statusBody{Status: "error", Message: "invalid body encoding"}), nil
	}

	payload, err := sheet.DecodePayload(headerValue(evt.Headers, "content-type"), bytes.NewReader(body))
	if err != nil {
		logger.Warn("rejected submission payload", "error", err)
		return respond(statusBody{Status: "error", Message: err.Error()}), nil
	}
	if _, err := service.Ingest(ctx, payload); err != nil {
		return respond(statusBody{Status: "error", Message: err.Error()}), nil
	}
	return respond(statusBody{Status: "ok"}), nil
}

// respond always uses status 200; callers read the outcome from the body.
func respond(body statusBody) events.APIGatewayV2HTTPResponse {
	data, _ := json.Marshal(body)
	headers := endpointHeaders()
	headers["content-type"] = "application/json"
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       string(data),
	}
}

func endpointHeaders() map[string]string {
	return map[string]string{
		"access-control-allow-origin":  "*",
		"access-control-allow-methods": "POST",
		"access-control-allow-headers": "Content-Type",
	}
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
