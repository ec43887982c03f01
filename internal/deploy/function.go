package deploy

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// Function defaults. The custom runtime runs an executable named bootstrap.
const (
	DefaultFunctionName   = "mcp-server"
	DefaultTimeoutSeconds = 30
	bootstrapName         = "bootstrap"
)

// FunctionOptions configures DeployFunction. Empty fields take the defaults.
type FunctionOptions struct {
	FunctionName string
	RoleARN      string
	BinaryPath   string
	Timeout      int32
	Architecture lambdatypes.Architecture
}

// FunctionResult describes the deployed function.
type FunctionResult struct {
	FunctionARN string
	FunctionURL string
	Created     bool // false when existing code was updated
}

// BuildZip packages the executable at binaryPath as a Lambda deployment
// archive containing a single executable named bootstrap.
func BuildZip(binaryPath string) ([]byte, error) {
	bin, err := os.ReadFile(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("read binary: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	hdr := &zip.FileHeader{Name: bootstrapName, Method: zip.Deflate}
	hdr.SetMode(0o755)
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("zip %s: %w", bootstrapName, err)
	}
	if _, err := w.Write(bin); err != nil {
		return nil, fmt.Errorf("zip %s: %w", bootstrapName, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// DeployFunction creates the function, or updates its code when it already
// exists, then ensures a public function URL.
func DeployFunction(ctx context.Context, client LambdaAPI, opts FunctionOptions) (*FunctionResult, error) {
	if opts.FunctionName == "" {
		opts.FunctionName = DefaultFunctionName
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeoutSeconds
	}
	if opts.Architecture == "" {
		opts.Architecture = lambdatypes.ArchitectureX8664
	}

	archive, err := BuildZip(opts.BinaryPath)
	if err != nil {
		return nil, err
	}

	res := &FunctionResult{}
	var conflict *lambdatypes.ResourceConflictException

	created, err := client.CreateFunction(ctx, &lambda.CreateFunctionInput{
		FunctionName:  aws.String(opts.FunctionName),
		Runtime:       lambdatypes.RuntimeProvidedal2023,
		Handler:       aws.String(bootstrapName),
		Role:          aws.String(opts.RoleARN),
		Code:          &lambdatypes.FunctionCode{ZipFile: archive},
		Timeout:       aws.Int32(opts.Timeout),
		Architectures: []lambdatypes.Architecture{opts.Architecture},
	})
	switch {
	case err == nil:
		res.FunctionARN = aws.ToString(created.FunctionArn)
		res.Created = true
	case errors.As(err, &conflict):
		updated, err := client.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
			FunctionName: aws.String(opts.FunctionName),
			ZipFile:      archive,
		})
		if err != nil {
			return nil, fmt.Errorf("update function code %s: %w", opts.FunctionName, err)
		}
		res.FunctionARN = aws.ToString(updated.FunctionArn)
	default:
		return nil, fmt.Errorf("create function %s: %w", opts.FunctionName, err)
	}

	url, err := ensureFunctionURL(ctx, client, opts.FunctionName)
	if err != nil {
		return nil, err
	}
	res.FunctionURL = url
	return res, nil
}

// ensureFunctionURL creates an unauthenticated function URL, or returns the
// existing one, and grants public invoke on it.
func ensureFunctionURL(ctx context.Context, client LambdaAPI, name string) (string, error) {
	var conflict *lambdatypes.ResourceConflictException

	var url string
	out, err := client.CreateFunctionUrlConfig(ctx, &lambda.CreateFunctionUrlConfigInput{
		FunctionName: aws.String(name),
		AuthType:     lambdatypes.FunctionUrlAuthTypeNone,
	})
	switch {
	case err == nil:
		url = aws.ToString(out.FunctionUrl)
	case errors.As(err, &conflict):
		existing, err := client.GetFunctionUrlConfig(ctx, &lambda.GetFunctionUrlConfigInput{
			FunctionName: aws.String(name),
		})
		if err != nil {
			return "", fmt.Errorf("get function URL %s: %w", name, err)
		}
		url = aws.ToString(existing.FunctionUrl)
	default:
		return "", fmt.Errorf("create function URL %s: %w", name, err)
	}

	_, err = client.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName:        aws.String(name),
		StatementId:         aws.String("function-url-public"),
		Action:              aws.String("lambda:InvokeFunctionUrl"),
		Principal:           aws.String("*"),
		FunctionUrlAuthType: lambdatypes.FunctionUrlAuthTypeNone,
	})
	if err != nil && !errors.As(err, &conflict) {
		return "", fmt.Errorf("grant function URL access %s: %w", name, err)
	}
	return url, nil
}
