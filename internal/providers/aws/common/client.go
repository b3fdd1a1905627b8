package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ProfileConfig is a resolved AWS profile with its SDK configuration and
// initialised service clients. It is the unit passed between provider
// functions and into the engine.
type ProfileConfig struct {
	// ProfileName is the name from ~/.aws/credentials or "default".
	ProfileName string

	// AccountID is the resolved AWS account ID for this profile (via STS).
	// For the orchestrator this is the organization management account.
	AccountID string

	// Region is the home region for this profile configuration.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	// Clients holds initialised service clients built from Config.
	Clients *ClientSet
}

// AWSClientProvider loads AWS configurations and derives the per-account
// configurations used for cross-account work. It is the sole entry point for
// AWS credential and region management across the provider layer.
//
// Implementations must use the AWS SDK v2 only. Never call the aws CLI.
type AWSClientProvider interface {
	// LoadProfile returns a ProfileConfig for the named profile. Pass an
	// empty string to load the default credential chain. A non-empty region
	// overrides the profile's configured region.
	LoadProfile(ctx context.Context, profile, region string) (*ProfileConfig, error)

	// GetActiveRegions returns all regions that are enabled for the account
	// associated with cfg.
	GetActiveRegions(ctx context.Context, cfg *ProfileConfig) ([]string, error)

	// ConfigWithCredentials clones cfg with creds as its credential source.
	// The region and every other setting are inherited from the profile.
	ConfigWithCredentials(cfg *ProfileConfig, creds aws.CredentialsProvider) aws.Config
}
