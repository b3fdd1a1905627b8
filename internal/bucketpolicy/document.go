// Package bucketpolicy maintains the central CloudTrail bucket policy.
//
// Policies fetched from S3 are parsed into Document before any merge logic
// runs. Statements keep the exact JSON they were parsed from, so statements
// authored outside this tool survive a read-modify-write unchanged even when
// they use elements (Condition, NotPrincipal, ...) that Statement does not
// model.
package bucketpolicy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPolicy is returned by Parse when a policy fails structural
// validation.
var ErrMalformedPolicy = errors.New("malformed bucket policy")

// Document is an S3 bucket policy.
type Document struct {
	Version    string
	ID         string
	Statements []Statement
}

// Statement is one element of a policy's Statement array.
type Statement struct {
	Sid       string
	Effect    string
	Principal Principal
	Action    StringList
	Resource  StringList

	// raw holds the statement's original JSON when it was parsed from a
	// fetched policy. Marshalling re-emits it unchanged.
	raw json.RawMessage
}

type documentJSON struct {
	Version   string            `json:"Version"`
	ID        string            `json:"Id,omitempty"`
	Statement []json.RawMessage `json:"Statement"`
}

type statementJSON struct {
	Sid       string     `json:"Sid,omitempty"`
	Effect    string     `json:"Effect"`
	Principal *Principal `json:"Principal,omitempty"`
	Action    StringList `json:"Action,omitempty"`
	Resource  StringList `json:"Resource,omitempty"`
}

// Parse converts a policy JSON document into a Document. The Statement
// element may be a single object or an array. Version and every statement's
// Effect are required.
func Parse(data []byte) (Document, error) {
	var wire struct {
		Version   string          `json:"Version"`
		ID        string          `json:"Id"`
		Statement json.RawMessage `json:"Statement"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrMalformedPolicy, err)
	}
	if wire.Version == "" {
		return Document{}, fmt.Errorf("%w: missing Version", ErrMalformedPolicy)
	}

	raws, err := splitStatements(wire.Statement)
	if err != nil {
		return Document{}, err
	}

	doc := Document{Version: wire.Version, ID: wire.ID, Statements: make([]Statement, 0, len(raws))}
	for i, raw := range raws {
		var sj statementJSON
		if err := json.Unmarshal(raw, &sj); err != nil {
			return Document{}, fmt.Errorf("%w: statement %d: %w", ErrMalformedPolicy, i, err)
		}
		if sj.Effect != "Allow" && sj.Effect != "Deny" {
			return Document{}, fmt.Errorf("%w: statement %d: Effect must be Allow or Deny, got %q", ErrMalformedPolicy, i, sj.Effect)
		}
		st := Statement{
			Sid:      sj.Sid,
			Effect:   sj.Effect,
			Action:   sj.Action,
			Resource: sj.Resource,
			raw:      append(json.RawMessage(nil), raw...),
		}
		if sj.Principal != nil {
			st.Principal = *sj.Principal
		}
		doc.Statements = append(doc.Statements, st)
	}
	return doc, nil
}

// splitStatements accepts either a JSON array of statements or a single
// statement object.
func splitStatements(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil, nil
	case trimmed[0] == '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: Statement: %w", ErrMalformedPolicy, err)
		}
		return list, nil
	case trimmed[0] == '{':
		return []json.RawMessage{trimmed}, nil
	}
	return nil, fmt.Errorf("%w: Statement must be an object or an array", ErrMalformedPolicy)
}

// MarshalJSON emits the document in the form S3 expects. Parsed statements
// are written back byte-for-byte (modulo insignificant whitespace).
func (d Document) MarshalJSON() ([]byte, error) {
	wire := documentJSON{
		Version:   d.Version,
		ID:        d.ID,
		Statement: make([]json.RawMessage, 0, len(d.Statements)),
	}
	for _, s := range d.Statements {
		b, err := s.MarshalJSON()
		if err != nil {
			return nil, err
		}
		wire.Statement = append(wire.Statement, b)
	}
	return json.Marshal(wire)
}

// MarshalJSON returns the statement's original JSON when it was parsed, and
// a fresh encoding otherwise.
func (s Statement) MarshalJSON() ([]byte, error) {
	if s.raw != nil {
		return s.raw, nil
	}
	sj := statementJSON{
		Sid:      s.Sid,
		Effect:   s.Effect,
		Action:   s.Action,
		Resource: s.Resource,
	}
	if !s.Principal.IsZero() {
		p := s.Principal
		sj.Principal = &p
	}
	return json.Marshal(sj)
}

// String returns the compact JSON encoding of the document.
func (d Document) String() string {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("<invalid policy: %v>", err)
	}
	return string(b)
}

// Clone returns a copy of d whose statement slice can be appended to without
// affecting d.
func (d Document) Clone() Document {
	out := d
	out.Statements = append([]Statement(nil), d.Statements...)
	return out
}

// Sids returns the statement ids in document order.
func (d Document) Sids() []string {
	sids := make([]string, len(d.Statements))
	for i, s := range d.Statements {
		sids[i] = s.Sid
	}
	return sids
}

// Principal handles either "*" or a map of principal type to identifiers,
// e.g. {"Service": "cloudtrail.amazonaws.com"}.
type Principal struct {
	Any     bool
	Entries map[string]StringList
}

// ServicePrincipal returns a Principal naming one AWS service.
func ServicePrincipal(service string) Principal {
	return Principal{Entries: map[string]StringList{"Service": {service}}}
}

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool {
	return !p.Any && len(p.Entries) == 0
}

func (p *Principal) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != "*" {
			return fmt.Errorf("principal: bare string must be \"*\", got %q", s)
		}
		p.Any = true
		p.Entries = nil
		return nil
	}

	var m map[string]StringList
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("principal: expected \"*\" or an object, got %s: %w", string(b), err)
	}
	p.Any = false
	p.Entries = m
	return nil
}

func (p Principal) MarshalJSON() ([]byte, error) {
	if p.Any {
		return json.Marshal("*")
	}
	if p.Entries == nil {
		return []byte("null"), nil
	}
	out := make(map[string]any, len(p.Entries))
	for k, v := range p.Entries {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = []string(v)
		}
	}
	return json.Marshal(out)
}

// StringList handles either a single string or a []string. It always
// marshals as an array, matching the statements CloudTrail documents.
type StringList []string

func (sl *StringList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*sl = []string{s}
		return nil
	}
	var ss []string
	if err := json.Unmarshal(b, &ss); err != nil {
		return fmt.Errorf("StringList: expected string or []string, got %s: %w", string(b), err)
	}
	*sl = ss
	return nil
}
