// Package trail ensures a named CloudTrail trail exists and is logging in one
// account. The caller supplies a CloudTrail client already bound to that
// account's credentials.
package trail

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	cloudtrailsvc "github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/providers/aws/common"
)

var (
	// ErrTrailLookup wraps failures to read the current trail state.
	ErrTrailLookup = errors.New("trail lookup failed")

	// ErrTrailCreation wraps CreateTrail failures.
	ErrTrailCreation = errors.New("trail creation failed")

	// ErrTrailStart wraps StartLogging failures and trails that report they
	// are still not logging after a start.
	ErrTrailStart = errors.New("trail start failed")
)

const (
	codeTrailNotFound      = "TrailNotFoundException"
	codeTrailAlreadyExists = "TrailAlreadyExistsException"
)

// Provisioner creates and starts trails.
type Provisioner struct {
	log *zap.Logger
}

// NewProvisioner returns a Provisioner that logs to logger.
func NewProvisioner(logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{log: logger}
}

// Describe reports the named trail and its state without changing anything.
// A missing trail yields a zero Trail and TrailAbsent.
func (p *Provisioner) Describe(ctx context.Context, client common.CloudTrailClient, name string) (models.Trail, models.TrailState, error) {
	t, found, err := lookup(ctx, client, name)
	if err != nil {
		return models.Trail{}, "", err
	}
	if !found {
		return models.Trail{}, models.TrailAbsent, nil
	}

	status, err := client.GetTrailStatus(ctx, &cloudtrailsvc.GetTrailStatusInput{
		Name: aws.String(name),
	})
	if err != nil {
		return models.Trail{}, "", fmt.Errorf("%w: get trail status %s: %w", ErrTrailLookup, name, err)
	}
	t.Logging = aws.ToBool(status.IsLogging)
	return t, t.State(), nil
}

// EnsureTrail creates the trail when it is absent, then starts logging
// unconditionally. StartLogging on a trail that is already logging is a
// no-op on the AWS side. On success the trail is in TrailExistsLogging.
func (p *Provisioner) EnsureTrail(ctx context.Context, client common.CloudTrailClient, name, bucket string) (models.Trail, error) {
	log := p.log.With(zap.String("trail", name), zap.String("bucket", bucket))

	t, found, err := lookup(ctx, client, name)
	if err != nil {
		return models.Trail{}, err
	}

	if !found {
		t, err = p.create(ctx, client, name, bucket)
		if err != nil {
			return models.Trail{}, err
		}
		log.Info("trail created", zap.String("arn", t.ARN))
	} else {
		log.Debug("trail already exists", zap.String("arn", t.ARN))
	}

	if _, err := client.StartLogging(ctx, &cloudtrailsvc.StartLoggingInput{
		Name: aws.String(name),
	}); err != nil {
		return t, fmt.Errorf("%w: start logging %s: %w", ErrTrailStart, name, err)
	}

	status, err := client.GetTrailStatus(ctx, &cloudtrailsvc.GetTrailStatusInput{
		Name: aws.String(name),
	})
	switch {
	case err != nil:
		// Logging was started; an unreadable status is not a failure.
		log.Warn("could not verify trail status", zap.Error(err))
	case !aws.ToBool(status.IsLogging):
		return t, fmt.Errorf("%w: %s reports IsLogging=false after StartLogging", ErrTrailStart, name)
	}

	t.Logging = true
	log.Info("trail logging")
	return t, nil
}

func (p *Provisioner) create(ctx context.Context, client common.CloudTrailClient, name, bucket string) (models.Trail, error) {
	out, err := client.CreateTrail(ctx, &cloudtrailsvc.CreateTrailInput{
		Name:                       aws.String(name),
		S3BucketName:               aws.String(bucket),
		IsMultiRegionTrail:         aws.Bool(true),
		EnableLogFileValidation:    aws.Bool(true),
		IncludeGlobalServiceEvents: aws.Bool(true),
	})
	if err != nil {
		if common.HasErrorCode(err, codeTrailAlreadyExists) {
			// Created between our lookup and now; treat as existing.
			p.log.Warn("trail appeared concurrently", zap.String("trail", name))
			t, found, lerr := lookup(ctx, client, name)
			if lerr == nil && found {
				return t, nil
			}
		}
		return models.Trail{}, fmt.Errorf("%w: create %s: %w", ErrTrailCreation, name, err)
	}

	return models.Trail{
		Name:                       aws.ToString(out.Name),
		BucketName:                 aws.ToString(out.S3BucketName),
		ARN:                        aws.ToString(out.TrailARN),
		MultiRegion:                aws.ToBool(out.IsMultiRegionTrail),
		LogFileValidation:          aws.ToBool(out.LogFileValidationEnabled),
		IncludeGlobalServiceEvents: aws.ToBool(out.IncludeGlobalServiceEvents),
		Created:                    true,
	}, nil
}

// lookup calls DescribeTrails for name. IncludeShadowTrails is false so a
// trail replicated from another region is not mistaken for a local one.
func lookup(ctx context.Context, client common.CloudTrailClient, name string) (models.Trail, bool, error) {
	out, err := client.DescribeTrails(ctx, &cloudtrailsvc.DescribeTrailsInput{
		TrailNameList:       []string{name},
		IncludeShadowTrails: aws.Bool(false),
	})
	if err != nil {
		if common.HasErrorCode(err, codeTrailNotFound) {
			return models.Trail{}, false, nil
		}
		return models.Trail{}, false, fmt.Errorf("%w: describe %s: %w", ErrTrailLookup, name, err)
	}

	for _, tr := range out.TrailList {
		if aws.ToString(tr.Name) == name {
			return fromSDK(tr), true, nil
		}
	}
	return models.Trail{}, false, nil
}

func fromSDK(tr cttypes.Trail) models.Trail {
	return models.Trail{
		Name:                       aws.ToString(tr.Name),
		BucketName:                 aws.ToString(tr.S3BucketName),
		ARN:                        aws.ToString(tr.TrailARN),
		HomeRegion:                 aws.ToString(tr.HomeRegion),
		MultiRegion:                aws.ToBool(tr.IsMultiRegionTrail),
		LogFileValidation:          aws.ToBool(tr.LogFileValidationEnabled),
		IncludeGlobalServiceEvents: aws.ToBool(tr.IncludeGlobalServiceEvents),
	}
}

// MultiRegionTrails returns every trail owned by the caller's account that
// covers all regions.
func MultiRegionTrails(ctx context.Context, client common.CloudTrailClient) ([]models.Trail, error) {
	out, err := client.DescribeTrails(ctx, &cloudtrailsvc.DescribeTrailsInput{
		IncludeShadowTrails: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: describe trails: %w", ErrTrailLookup, err)
	}

	var trails []models.Trail
	for _, tr := range out.TrailList {
		if aws.ToBool(tr.IsMultiRegionTrail) {
			trails = append(trails, fromSDK(tr))
		}
	}
	return trails, nil
}
