package common

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// DefaultRegion is used when neither the caller nor the profile sets a region.
const DefaultRegion = "us-east-1"

// LoadOptions selects the credentials and region for LoadConfig.
type LoadOptions struct {
	// Profile is the shared-config profile name. Empty selects the default
	// credential chain (environment, default profile, instance role, ...).
	Profile string

	// Region overrides the profile's region when non-empty.
	Region string
}

// LoadConfig loads the AWS SDK configuration for opts using the standard
// shared config and credentials files. Never call the aws CLI.
func LoadConfig(ctx context.Context, opts LoadOptions) (aws.Config, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS profile %q: %w", ProfileDisplayName(opts.Profile), err)
	}

	// Fall back to us-east-1 when the profile has no region configured so
	// that all SDK clients can be constructed successfully.
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	return cfg, nil
}

// ResolveAccountID calls STS GetCallerIdentity to retrieve the numeric AWS
// account ID for the credentials currently loaded in stsClient.
func ResolveAccountID(ctx context.Context, stsClient STSClient) (string, error) {
	out, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("STS GetCallerIdentity: %w", err)
	}
	if out.Account == nil {
		return "", fmt.Errorf("STS GetCallerIdentity returned nil account")
	}
	return aws.ToString(out.Account), nil
}

// ProfileDisplayName returns a human-readable profile identifier. An empty
// string (the default profile) is shown as "default".
func ProfileDisplayName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

// DiscoverProfileNames returns the deduplicated profile names declared in the
// shared credentials and config files. AWS_SHARED_CREDENTIALS_FILE and
// AWS_CONFIG_FILE override the ~/.aws defaults, as they do for LoadConfig.
func DiscoverProfileNames() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return discoverProfileNames(
		sharedFilePath("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(home, ".aws", "credentials")),
		sharedFilePath("AWS_CONFIG_FILE", filepath.Join(home, ".aws", "config")),
	)
}

func sharedFilePath(env, fallback string) string {
	if p := os.Getenv(env); p != "" {
		return p
	}
	return fallback
}

func discoverProfileNames(credentialsPath, configPath string) ([]string, error) {
	// credentials: section headers are the bare profile name.
	credProfiles, err := parseProfilesFromFile(credentialsPath, false)
	if err != nil {
		return nil, err
	}

	// config: non-default profiles are prefixed with "profile ".
	cfgProfiles, err := parseProfilesFromFile(configPath, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var all []string
	for _, name := range append(credProfiles, cfgProfiles...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		all = append(all, name)
	}
	return all, nil
}

// parseProfilesFromFile scans path for INI section headers ([...]) and
// returns the profile name from each header. When stripProfilePrefix is true
// the "profile " prefix used in ~/.aws/config is removed.
//
// If the file does not exist, nil is returned without an error.
func parseProfilesFromFile(path string, stripProfilePrefix bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var profiles []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
			continue
		}

		name := line[1 : len(line)-1]
		if stripProfilePrefix && name != "default" {
			name = strings.TrimPrefix(name, "profile ")
		}
		profiles = append(profiles, strings.TrimSpace(name))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return profiles, nil
}
