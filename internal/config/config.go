// Package config loads orgtrail's settings file.
//
// Key names match the app_settings.yaml files operators already keep next to
// the provisioning scripts, so an existing file can be reused unchanged.
package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/hashicorp/go-multierror"
)

// ErrInvalidConfig is returned by Check when Validate reports any problem.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultFile        = "app_settings.yaml"
	DefaultAccessRole  = "OrganizationAccountAccessRole"
	DefaultTrailName   = "management-events"
	DefaultAccountFile = "accounts.yaml"
	DefaultSession     = "orgtrail-session"

	bucketPrefix = "aws-cloudtrail-logs-"
)

// Config is the application configuration. It is treated as immutable once
// loaded: Override and WithDefaults return modified copies.
type Config struct {
	// LocalProfile is the shared-config profile holding management account
	// credentials.
	LocalProfile string `yaml:"LocalProfile" json:"local_profile"`

	// Region used for every regional client. Empty defers to the profile.
	Region string `yaml:"Region" json:"region"`

	ManagementAccountID string `yaml:"ManagementAccountId" json:"management_account_id"`

	// LoggingAccountID owns the central CloudTrail bucket.
	LoggingAccountID string `yaml:"LoggingAccountId" json:"logging_account_id"`

	// AccessRole is assumed in every member account.
	AccessRole string `yaml:"OrganizationAccountAccessRole" json:"access_role"`

	BucketName   string `yaml:"CloudTrailBucketName" json:"bucket_name"`
	TrailName    string `yaml:"AccountCloudTrailName" json:"trail_name"`
	AccountsFile string `yaml:"AccountsFile" json:"accounts_file"`
	SessionName  string `yaml:"SessionName" json:"session_name"`
}

// Loader is the interface for reading Config from disk.
type Loader interface {
	// Load reads and parses the configuration file, applying defaults.
	Load() (*Config, error)

	// ConfigPath returns the absolute path to the configuration file.
	ConfigPath() string
}

// Defaults returns the values used for any key the file and flags leave
// empty. The bucket name is derived from the logging account and is filled in
// by WithDefaults.
func Defaults() Config {
	return Config{
		AccessRole:   DefaultAccessRole,
		TrailName:    DefaultTrailName,
		AccountsFile: DefaultAccountFile,
		SessionName:  DefaultSession,
	}
}

// DefaultBucketName returns the conventional CloudTrail bucket name for a
// logging account.
func DefaultBucketName(loggingAccountID string) string {
	if loggingAccountID == "" {
		return ""
	}
	return bucketPrefix + loggingAccountID
}

// WithDefaults returns a copy of c with every empty key set to its default.
func (c Config) WithDefaults() Config {
	d := Defaults()
	d.BucketName = DefaultBucketName(c.LoggingAccountID)
	return d.Override(c)
}

// Override returns a copy of c where every non-empty field of o replaces the
// corresponding field of c.
func (c Config) Override(o Config) Config {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.LocalProfile, o.LocalProfile)
	set(&c.Region, o.Region)
	set(&c.ManagementAccountID, o.ManagementAccountID)
	set(&c.LoggingAccountID, o.LoggingAccountID)
	set(&c.AccessRole, o.AccessRole)
	set(&c.BucketName, o.BucketName)
	set(&c.TrailName, o.TrailName)
	set(&c.AccountsFile, o.AccountsFile)
	set(&c.SessionName, o.SessionName)
	return c
}

var (
	accountIDPattern = regexp.MustCompile(`^[0-9]{12}$`)
	bucketPattern    = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
)

// IsAccountID reports whether s is a 12-digit AWS account id.
func IsAccountID(s string) bool {
	return accountIDPattern.MatchString(s)
}

// Validate checks the settings a provisioning run depends on and returns
// every problem found. It never stops at the first error.
func (c Config) Validate() []error {
	var errs []error

	if !IsAccountID(c.ManagementAccountID) {
		errs = append(errs, fmt.Errorf("ManagementAccountId %q: must be a 12-digit account id", c.ManagementAccountID))
	}
	if !IsAccountID(c.LoggingAccountID) {
		errs = append(errs, fmt.Errorf("LoggingAccountId %q: must be a 12-digit account id", c.LoggingAccountID))
	}
	if c.AccessRole == "" {
		errs = append(errs, errors.New("OrganizationAccountAccessRole: must not be empty"))
	}
	if !bucketPattern.MatchString(c.BucketName) {
		errs = append(errs, fmt.Errorf("CloudTrailBucketName %q: not a valid S3 bucket name", c.BucketName))
	}
	if c.TrailName == "" {
		errs = append(errs, errors.New("AccountCloudTrailName: must not be empty"))
	}
	if c.SessionName == "" {
		errs = append(errs, errors.New("SessionName: must not be empty"))
	}
	return errs
}

// Check runs Validate and folds the problems into a single error wrapping
// ErrInvalidConfig.
func (c Config) Check() error {
	errs := c.Validate()
	if len(errs) == 0 {
		return nil
	}
	var merr *multierror.Error
	merr = multierror.Append(merr, errs...)
	return fmt.Errorf("%w: %w", ErrInvalidConfig, merr)
}
