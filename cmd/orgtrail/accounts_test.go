package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/accountlist"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
)

func orgWorld() *fakeAWS {
	return newFakeAWS(
		acct("111111111111", models.StatusActive),
		acct("222222222222", models.StatusSuspended),
		acct("333333333333", models.StatusActive),
	)
}

// ── accounts list ─────────────────────────────────────────────────────────────

func TestAccountsList_Table(t *testing.T) {
	out, _, err := execute(t, orgWorld(), "", "accounts", "list", "--config", writeSettings(t))
	if err != nil {
		t.Fatalf("accounts list: %v", err)
	}
	for _, want := range []string{"111111111111", "222222222222", "333333333333", "SUSPENDED", "3 accounts"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q; got:\n%s", want, out)
		}
	}
}

func TestAccountsList_JSONScope(t *testing.T) {
	out, _, err := execute(t, orgWorld(), "", "accounts", "list", "--config", writeSettings(t),
		"--scope", "suspended", "--format", "json")
	if err != nil {
		t.Fatalf("accounts list: %v", err)
	}

	var got []models.Account
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].ID != "222222222222" {
		t.Errorf("got %+v; want only the suspended account", got)
	}
}

func TestAccountsList_YAMLRoundTrips(t *testing.T) {
	out, _, err := execute(t, orgWorld(), "", "accounts", "list", "--config", writeSettings(t), "--format", "yaml")
	if err != nil {
		t.Fatalf("accounts list: %v", err)
	}

	got, err := accountlist.Decode(strings.NewReader(out))
	if err != nil {
		t.Fatalf("yaml output is not a valid account list: %v\n%s", err, out)
	}
	if len(got) != 3 {
		t.Errorf("decoded %d accounts; want 3", len(got))
	}
}

func TestAccountsList_SavesOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	_, errOut, err := execute(t, orgWorld(), "", "accounts", "list", "--config", writeSettings(t),
		"--scope", "active", "-o", path)
	if err != nil {
		t.Fatalf("accounts list: %v", err)
	}
	if !strings.Contains(errOut, "Saved 2 accounts to "+path) {
		t.Errorf("missing save notice; stderr:\n%s", errOut)
	}

	saved, err := accountlist.Load(path)
	if err != nil {
		t.Fatalf("load saved list: %v", err)
	}
	if ids := models.AccountIDs(saved); len(ids) != 2 || ids[0] != "111111111111" || ids[1] != "333333333333" {
		t.Errorf("saved ids = %v", ids)
	}
}

func TestAccountsList_Interactive(t *testing.T) {
	out, errOut, err := execute(t, orgWorld(), "3\n", "accounts", "list", "--config", writeSettings(t), "-i", "--format", "json")
	if err != nil {
		t.Fatalf("accounts list -i: %v", err)
	}
	if !strings.Contains(errOut, "Which accounts should be listed?") {
		t.Errorf("menu not shown on stderr:\n%s", errOut)
	}

	var got []models.Account
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].Status != models.StatusSuspended {
		t.Errorf("got %+v; want the suspended account only", got)
	}
}

func TestAccountsList_InvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"bad menu choice", "9\n", []string{"-i"}},
		{"bad scope", "", []string{"--scope", "closed"}},
		{"bad format", "", []string{"--format", "xml"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"accounts", "list", "--config", writeSettings(t)}, tc.args...)
			_, _, err := execute(t, orgWorld(), tc.stdin, args...)
			if !errors.Is(err, ErrInvalidOperatorInput) {
				t.Errorf("err = %v; want ErrInvalidOperatorInput", err)
			}
		})
	}
}

func TestAccountsList_DirectoryFailure(t *testing.T) {
	f := orgWorld()
	f.orgErr = errBoom
	_, _, err := execute(t, f, "", "accounts", "list", "--config", writeSettings(t))
	if err == nil || !strings.Contains(err.Error(), "list accounts") {
		t.Errorf("err = %v; want a list accounts failure", err)
	}
}

func TestCheckFormat(t *testing.T) {
	if err := checkFormat("json", "table", "json"); err != nil {
		t.Errorf("json should be accepted: %v", err)
	}
	err := checkFormat("csv", "table", "yaml", "json")
	if !errors.Is(err, ErrInvalidOperatorInput) {
		t.Fatalf("err = %v; want ErrInvalidOperatorInput", err)
	}
	if !strings.Contains(err.Error(), "table, yaml, or json") {
		t.Errorf("error should list allowed formats; got %q", err)
	}
}
