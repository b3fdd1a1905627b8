package awsorg

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	orgsvc "github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
)

// fakeOrganizations serves pages keyed by the incoming NextToken ("" for the
// first page) and records every token it was called with.
type fakeOrganizations struct {
	pages  map[string]*orgsvc.ListAccountsOutput
	err    error
	tokens []string
}

func (f *fakeOrganizations) ListAccounts(_ context.Context, params *orgsvc.ListAccountsInput, _ ...func(*orgsvc.Options)) (*orgsvc.ListAccountsOutput, error) {
	token := aws.ToString(params.NextToken)
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[token], nil
}

func account(id, name string, status orgtypes.AccountStatus) orgtypes.Account {
	return orgtypes.Account{Id: aws.String(id), Name: aws.String(name), Status: status}
}

func twoPageOrg() *fakeOrganizations {
	return &fakeOrganizations{pages: map[string]*orgsvc.ListAccountsOutput{
		"": {
			Accounts: []orgtypes.Account{
				account("111111111111", "mgmt", orgtypes.AccountStatusActive),
				account("222222222222", "old-sandbox", orgtypes.AccountStatusSuspended),
			},
			NextToken: aws.String("page-2"),
		},
		"page-2": {
			Accounts: []orgtypes.Account{
				account("333333333333", "prod", orgtypes.AccountStatusActive),
				account("444444444444", "closing", orgtypes.AccountStatusPendingClosure),
			},
		},
	}}
}

func TestListAccounts_FollowsPagination(t *testing.T) {
	org := twoPageOrg()

	accounts, err := NewDirectory(org).ListAccounts(context.Background(), models.ScopeAll)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "page-2"}, org.tokens)
	assert.Equal(t, []string{"111111111111", "222222222222", "333333333333", "444444444444"}, models.AccountIDs(accounts))
	assert.Equal(t, models.Account{ID: "444444444444", Name: "closing", Status: "PENDING_CLOSURE"}, accounts[3])
}

func TestListAccounts_ScopeIsSubsetOfAll(t *testing.T) {
	all, err := NewDirectory(twoPageOrg()).ListAccounts(context.Background(), models.ScopeAll)
	require.NoError(t, err)

	for _, tc := range []struct {
		scope  models.AccountScope
		status models.AccountStatus
	}{
		{models.ScopeActive, models.StatusActive},
		{models.ScopeSuspended, models.StatusSuspended},
	} {
		t.Run(string(tc.scope), func(t *testing.T) {
			got, err := NewDirectory(twoPageOrg()).ListAccounts(context.Background(), tc.scope)
			require.NoError(t, err)

			var want []models.Account
			for _, a := range all {
				if a.Status == tc.status {
					want = append(want, a)
				}
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestListAccounts_RemoteError(t *testing.T) {
	org := &fakeOrganizations{err: errors.New("AWSOrganizationsNotInUseException")}

	_, err := NewDirectory(org).ListAccounts(context.Background(), models.ScopeAll)

	require.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.ErrorContains(t, err, "AWSOrganizationsNotInUseException")
	assert.Len(t, org.tokens, 1, "no local retry")
}
