// Package accountlist persists organization account snapshots as YAML.
//
// The format is the one written by the account listing command and read back
// by provisioning runs:
//
//	accounts:
//	  - Id: "111111111111"
//	    Name: management
//	    Status: ACTIVE
package accountlist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
)

// DefaultPath is the account-list file used when none is configured.
const DefaultPath = "accounts.yaml"

// ErrMalformedAccountList is returned when a file cannot be parsed, has no
// "accounts" key, or contains an entry missing Id, Name or Status.
var ErrMalformedAccountList = errors.New("malformed account list")

// file is the on-disk document. Accounts is a pointer so that an absent key
// can be told apart from an empty list.
type file struct {
	Accounts *[]record `yaml:"accounts"`
}

// record mirrors models.Account with pointer fields so that missing keys are
// detectable.
type record struct {
	ID     *string `yaml:"Id"`
	Name   *string `yaml:"Name"`
	Status *string `yaml:"Status"`
}

// Save writes accounts to path, creating or truncating the file.
func Save(path string, accounts []models.Account) error {
	var buf bytes.Buffer
	if err := Encode(&buf, accounts); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write account list %q: %w", path, err)
	}
	return nil
}

// Load reads and validates the account list at path.
func Load(path string) ([]models.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open account list %q: %w", path, err)
	}
	defer f.Close()

	accounts, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return accounts, nil
}

// Encode writes accounts to w in the account-list format.
func Encode(w io.Writer, accounts []models.Account) error {
	list := make([]models.Account, len(accounts))
	copy(list, accounts)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(struct {
		Accounts []models.Account `yaml:"accounts"`
	}{Accounts: list}); err != nil {
		return fmt.Errorf("encode account list: %w", err)
	}
	return enc.Close()
}

// Decode reads an account list from r and converts it into accounts. Every
// entry must carry non-empty Id, Name and Status values.
func Decode(r io.Reader) ([]models.Account, error) {
	var doc file
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrMalformedAccountList)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedAccountList, err)
	}
	if doc.Accounts == nil {
		return nil, fmt.Errorf("%w: %q key not found", ErrMalformedAccountList, "accounts")
	}

	accounts := make([]models.Account, 0, len(*doc.Accounts))
	for i, rec := range *doc.Accounts {
		if missing := rec.missing(); missing != "" {
			return nil, fmt.Errorf("%w: entry %d: missing %s", ErrMalformedAccountList, i, missing)
		}
		accounts = append(accounts, models.Account{
			ID:     *rec.ID,
			Name:   *rec.Name,
			Status: models.AccountStatus(*rec.Status),
		})
	}
	return accounts, nil
}

// missing names the first required field that is absent or empty.
func (r record) missing() string {
	switch {
	case r.ID == nil || *r.ID == "":
		return "Id"
	case r.Name == nil || *r.Name == "":
		return "Name"
	case r.Status == nil || *r.Status == "":
		return "Status"
	}
	return ""
}
