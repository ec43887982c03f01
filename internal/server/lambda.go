package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
)

// LambdaHandler adapts the dispatcher to API Gateway proxy events. It answers
// 200 with the envelope for every dispatcher outcome and 500 with {error}
// when the body is not a request envelope. Function URL events decode into
// the same struct since they share the body fields.
func (s *Server) LambdaHandler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := s.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.WithField("requestID", lc.AwsRequestID)
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			logger.WithError(err).Warn("invalid base64 body")
			return proxyResponse(http.StatusInternalServerError, models.Failure("invalid request body: "+err.Error())), nil
		}
		body = decoded
	}

	status, resp := s.HandleBody(ctx, body)
	return proxyResponse(status, resp), nil
}

func proxyResponse(status int, resp models.Response) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(resp)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"error":"encode response"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(raw),
	}
}
