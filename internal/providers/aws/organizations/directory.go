// Package awsorg lists the member accounts of an AWS Organization.
//
// Listing must run with management-account (or delegated administrator)
// credentials; member accounts cannot call organizations:ListAccounts.
package awsorg

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	orgsvc "github.com/aws/aws-sdk-go-v2/service/organizations"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/providers/aws/common"
)

// ErrDirectoryUnavailable is returned when the Organizations API call fails.
// The underlying SDK error is wrapped and can be inspected with errors.As.
var ErrDirectoryUnavailable = errors.New("organization directory unavailable")

// Directory is the account directory client. It holds no state between
// calls; every ListAccounts reads the organization afresh.
type Directory struct {
	client common.OrganizationsClient
}

// NewDirectory returns a Directory backed by client.
func NewDirectory(client common.OrganizationsClient) *Directory {
	return &Directory{client: client}
}

// ListAccounts returns every member account matching scope. Pagination
// tokens are followed until exhausted and the result keeps the order in
// which the API returned accounts; that order is not stable across calls.
func (d *Directory) ListAccounts(ctx context.Context, scope models.AccountScope) ([]models.Account, error) {
	var accounts []models.Account

	p := orgsvc.NewListAccountsPaginator(d.client, &orgsvc.ListAccountsInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list accounts: %w", ErrDirectoryUnavailable, err)
		}
		for _, a := range page.Accounts {
			accounts = append(accounts, models.Account{
				ID:     aws.ToString(a.Id),
				Name:   aws.ToString(a.Name),
				Status: models.AccountStatus(a.Status),
			})
		}
	}

	return models.FilterAccounts(accounts, scope), nil
}
