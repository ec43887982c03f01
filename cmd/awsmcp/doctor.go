package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/client"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/config"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/common"
)

// doctorProbeMethod is not a dispatcher method. A reachable
// server answers it with an error envelope and makes no AWS calls.
const doctorProbeMethod = "doctor_ping"

const doctorServerTimeout = 5 * time.Second

// DoctorResult is the structured output of awsmcp doctor.
type DoctorResult struct {
	AWS struct {
		Profile       string   `json:"profile,omitempty"`
		Profiles      []string `json:"profiles,omitempty"`
		ProfilesError string   `json:"profiles_error,omitempty"`
		Credentials   bool     `json:"credentials_ok"`
		AccountID     string   `json:"account_id,omitempty"`
		Region        string   `json:"region,omitempty"`
		Error         string   `json:"error,omitempty"`
	} `json:"aws"`

	Config struct {
		Path    string   `json:"path"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"config"`

	Server struct {
		URL       string `json:"url,omitempty"`
		Reachable bool   `json:"reachable"`
		Error     string `json:"error,omitempty"`
	} `json:"server"`

	OverallHealthy bool `json:"overall_healthy"`
}

// awsProbe resolves the caller identity for the selected credentials.
type awsProbe func(ctx context.Context) (accountID, region string, err error)

// serverProbe sends one request to serverURL and returns the error text of
// the envelope, or "" on success.
type serverProbe func(ctx context.Context, serverURL string) string

// profileLister returns the profile names declared in the shared AWS files.
type profileLister func() ([]string, error)

// doctorProbes holds the checks runDoctor performs.
type doctorProbes struct {
	aws      awsProbe
	server   serverProbe
	profiles profileLister
}

func newDoctorCmd(opts *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check AWS credentials, the config file and dispatcher reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			probes := doctorProbes{aws: stsProbe(opts), server: httpProbe, profiles: common.DiscoverProfileNames}
			result, err := runDoctor(cmd.Context(), probes, cmd.OutOrStdout(), format, opts.configPath, opts.profile)
			if err != nil {
				return err
			}
			if !result.OverallHealthy {
				return errors.New("environment is not healthy")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	return cmd
}

func stsProbe(opts *globalOptions) awsProbe {
	return func(ctx context.Context) (string, string, error) {
		cfg, err := common.LoadConfig(ctx, common.LoadOptions{Profile: opts.profile, Region: opts.region})
		if err != nil {
			return "", "", err
		}
		stsClient, err := common.Client[common.STSClient](common.NewClientCache(cfg), common.ServiceSTS)
		if err != nil {
			return "", "", err
		}
		account, err := common.ResolveAccountID(ctx, stsClient)
		return account, cfg.Region, err
	}
}

func httpProbe(ctx context.Context, serverURL string) string {
	resp := client.New(serverURL, client.WithTimeout(doctorServerTimeout)).Send(ctx, doctorProbeMethod, nil)
	if !resp.Failed() || strings.HasPrefix(resp.Error, "Unknown method") {
		return ""
	}
	return resp.Error
}

// runDoctor collects every check, renders it to w and returns the result.
// The error covers rendering failures only.
func runDoctor(ctx context.Context, probes doctorProbes, w io.Writer, format, configPath, profile string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, probes, configPath, profile)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}
	return result, nil
}

func collectDoctorResult(ctx context.Context, probes doctorProbes, configPath, profile string) DoctorResult {
	var result DoctorResult

	result.AWS.Profile = profile
	profiles, err := probes.profiles()
	if err != nil {
		result.AWS.ProfilesError = err.Error()
	}
	result.AWS.Profiles = profiles

	// A named profile missing from the shared files cannot load; skip STS.
	var account, region string
	if profile != "" && err == nil && !slices.Contains(profiles, profile) {
		err = fmt.Errorf("profile %q not found in shared config", profile)
	} else {
		account, region, err = probes.aws(ctx)
	}
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = account
		result.AWS.Region = region
	}

	// The config file is optional; the server check needs it.
	result.Config.Path = configPath
	cfg, err := config.Load(configPath)
	switch {
	case err == nil:
		result.Config.Present = true
		result.Config.Valid = true
	case errors.Is(err, fs.ErrNotExist):
	default:
		result.Config.Present = true
		result.Config.Errors = []string{err.Error()}
	}

	if cfg != nil {
		result.Server.URL = cfg.ServerURL
		if msg := probes.server(ctx, cfg.ServerURL); msg != "" {
			result.Server.Error = msg
		} else {
			result.Server.Reachable = true
		}
	}

	result.OverallHealthy = result.AWS.Credentials &&
		(!result.Config.Present || result.Config.Valid) &&
		(cfg == nil || result.Server.Reachable)
	return result
}

func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintf(w, "\nAWS (profile: %s):\n", common.ProfileDisplayName(result.AWS.Profile))
	switch {
	case result.AWS.ProfilesError != "":
		doctorPrint(w, "Profiles", "unknown", result.AWS.ProfilesError)
	case len(result.AWS.Profiles) == 0:
		doctorPrint(w, "Profiles", "none", "credential chain only")
	default:
		doctorPrint(w, "Profiles", strings.Join(result.AWS.Profiles, ", "), "")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		doctorPrint(w, "Region", "OK", result.AWS.Region)
	}

	fmt.Fprintf(w, "\nConfig (%s):\n", result.Config.Path)
	switch {
	case !result.Config.Present:
		doctorPrint(w, "Present", "Not found (optional)", "")
	case result.Config.Valid:
		doctorPrint(w, "Present", "YES", "")
		doctorPrint(w, "Valid", "OK", "")
	default:
		doctorPrint(w, "Present", "YES", "")
		for _, e := range result.Config.Errors {
			doctorPrint(w, "Valid", "FAIL", e)
		}
	}

	fmt.Fprintln(w, "\nDispatcher:")
	switch {
	case result.Server.URL == "":
		doctorPrint(w, "Reachable", "skipped", "no valid config")
	case result.Server.Reachable:
		doctorPrint(w, "Reachable", "OK", result.Server.URL)
	default:
		doctorPrint(w, "Reachable", "FAIL", result.Server.Error)
	}
}

// doctorPrint writes one check line; detail, when set, is parenthesised.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
