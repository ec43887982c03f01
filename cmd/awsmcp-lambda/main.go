// Command awsmcp-lambda runs the dispatcher as an AWS Lambda handler behind
// API Gateway or a function URL. Build it for linux as "bootstrap".
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/logging"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/server"
)

func main() {
	logger, _, err := logging.New(logging.Options{
		Level: os.Getenv("LOG_LEVEL"),
		JSON:  true,
	})
	if err != nil {
		logrus.WithError(err).Fatal("configure logging")
	}

	cfg, err := common.LoadConfig(context.Background(), common.LoadOptions{})
	if err != nil {
		logger.WithError(err).Fatal("load AWS configuration")
	}

	srv := server.New(common.NewClientCache(cfg), server.WithLogger(logger))
	lambda.Start(srv.LambdaHandler)
}
