package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/config"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/deploy"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/common"
)

func newDeployCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Provision the dispatcher on AWS Lambda behind API Gateway",
	}
	cmd.AddCommand(
		newDeployRoleCmd(opts),
		newDeployFunctionCmd(opts),
		newDeployAPICmd(opts),
	)
	return cmd
}

func (o *globalOptions) loadAWS(cmd *cobra.Command) (aws.Config, error) {
	return common.LoadConfig(cmd.Context(), common.LoadOptions{Profile: o.profile, Region: o.region})
}

func newDeployRoleCmd(opts *globalOptions) *cobra.Command {
	var (
		roleName   string
		policyFile string
	)
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Create the Lambda execution role and attach its inline policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ro := deploy.RoleOptions{RoleName: roleName}
			if policyFile != "" {
				doc, err := os.ReadFile(policyFile)
				if err != nil {
					return fmt.Errorf("read policy file: %w", err)
				}
				ro.PolicyDocument = string(doc)
			}
			cfg, err := opts.loadAWS(cmd)
			if err != nil {
				return err
			}
			arn, err := deploy.EnsureRole(cmd.Context(), iam.NewFromConfig(cfg), ro)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Role ARN: %s\n", arn)
			return nil
		},
	}
	cmd.Flags().StringVar(&roleName, "name", deploy.DefaultRoleName, "Role name")
	cmd.Flags().StringVar(&policyFile, "policy-file", "", "Inline policy JSON (default: built-in read-only policy)")
	return cmd
}

func newDeployFunctionCmd(opts *globalOptions) *cobra.Command {
	var (
		name       string
		roleARN    string
		binaryPath string
		timeout    int32
		arch       string
	)
	cmd := &cobra.Command{
		Use:   "function",
		Short: "Create or update the Lambda function from a built bootstrap binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadAWS(cmd)
			if err != nil {
				return err
			}
			if roleARN == "" {
				roleARN, err = deploy.EnsureRole(cmd.Context(), iam.NewFromConfig(cfg), deploy.RoleOptions{})
				if err != nil {
					return err
				}
			}
			res, err := deploy.DeployFunction(cmd.Context(), lambda.NewFromConfig(cfg), deploy.FunctionOptions{
				FunctionName: name,
				RoleARN:      roleARN,
				BinaryPath:   binaryPath,
				Timeout:      timeout,
				Architecture: lambdaArchitecture(arch),
			})
			if err != nil {
				return err
			}
			action := "Updated"
			if res.Created {
				action = "Created"
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s function: %s\n", action, res.FunctionARN)
			fmt.Fprintf(w, "Function URL: %s\n", res.FunctionURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", deploy.DefaultFunctionName, "Function name")
	cmd.Flags().StringVar(&roleARN, "role-arn", "", "Execution role ARN (default: create or reuse the default role)")
	cmd.Flags().StringVar(&binaryPath, "binary", "bootstrap", "Linux build of cmd/awsmcp-lambda")
	cmd.Flags().Int32Var(&timeout, "timeout", deploy.DefaultTimeoutSeconds, "Function timeout in seconds")
	cmd.Flags().StringVar(&arch, "arch", "x86_64", "Function architecture: x86_64 or arm64")
	return cmd
}

func newDeployAPICmd(opts *globalOptions) *cobra.Command {
	var (
		functionName string
		stage        string
		writeConfig  bool
	)
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Expose the function through an API Gateway REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadAWS(cmd)
			if err != nil {
				return err
			}
			res, err := deploy.DeployAPI(cmd.Context(), apigateway.NewFromConfig(cfg), lambda.NewFromConfig(cfg), deploy.APIOptions{
				FunctionName: functionName,
				Stage:        stage,
			})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "API URL: %s\n", res.URL)
			if writeConfig {
				if err := config.SetServerURL(opts.configPath, res.URL); err != nil {
					return err
				}
				fmt.Fprintf(w, "Updated %s\n", opts.configPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&functionName, "function", deploy.DefaultFunctionName, "Function to expose")
	cmd.Flags().StringVar(&stage, "stage", deploy.DefaultAPIStage, "Deployment stage")
	cmd.Flags().BoolVar(&writeConfig, "write-config", true, "Store the API URL as server_url in --config")
	return cmd
}

func lambdaArchitecture(arch string) lambdatypes.Architecture {
	if arch == "arm64" {
		return lambdatypes.ArchitectureArm64
	}
	return lambdatypes.ArchitectureX8664
}
