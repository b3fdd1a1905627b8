package models

// TrailState is the provisioning state of the named trail in one account.
// EnsureTrail drives every account it succeeds on to TrailExistsLogging.
type TrailState string

const (
	TrailAbsent           TrailState = "ABSENT"
	TrailExistsNotLogging TrailState = "EXISTS_NOT_LOGGING"
	TrailExistsLogging    TrailState = "EXISTS_LOGGING"
)

// Trail describes a CloudTrail trail as observed or created by the
// provisioner. Created is true only when this run issued CreateTrail.
type Trail struct {
	Name                       string `json:"name"`
	BucketName                 string `json:"bucket_name"`
	ARN                        string `json:"arn,omitempty"`
	HomeRegion                 string `json:"home_region,omitempty"`
	MultiRegion                bool   `json:"multi_region"`
	LogFileValidation          bool   `json:"log_file_validation"`
	IncludeGlobalServiceEvents bool   `json:"include_global_service_events"`
	Logging                    bool   `json:"logging"`
	Created                    bool   `json:"created"`
}

// State derives the TrailState from an observed trail. A trail with no ARN
// and no name has not been found.
func (t Trail) State() TrailState {
	switch {
	case t.ARN == "" && t.Name == "":
		return TrailAbsent
	case t.Logging:
		return TrailExistsLogging
	default:
		return TrailExistsNotLogging
	}
}
