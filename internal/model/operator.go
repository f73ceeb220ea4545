package model

import "encoding/json"

// OperatorType classifies the authenticated caller. The ordinal values are
// part of the wire contract with the operator service and the permission
// matrix configuration.
type OperatorType int

const (
	OperatorPersonal OperatorType = iota
	OperatorManager
	OperatorAppKey
	OperatorOrgMember
)

// String returns the configuration key used for this operator type in the
// permission matrix.
func (t OperatorType) String() string {
	switch t {
	case OperatorPersonal:
		return "personal"
	case OperatorManager:
		return "manager"
	case OperatorAppKey:
		return "app-key"
	case OperatorOrgMember:
		return "org-member"
	default:
		return "unknown"
	}
}

// RoleRef is a versioned role code held by an operator.
type RoleRef struct {
	Code    string `json:"code"`
	Version int    `json:"version"`
}

// Operator is the resolved caller identity. It is constructed once per
// request from a session cookie or a propagated session header and is
// immutable afterwards. It is never persisted.
//
// Encoded carries the opaque, re-encodable session representation exactly as
// it will be re-asserted to downstream services. For header-sourced operators
// it is the inbound header value verbatim; for cookie-sourced operators it is
// synthesized from the operator record.
type Operator struct {
	SessionID  string       `json:"sessionId,omitempty"`
	OperatorID string       `json:"operatorId"`
	Type       OperatorType `json:"type"`
	LoginID    string       `json:"loginId"`
	BlockCode  int          `json:"blockCode"`
	Roles      []RoleRef    `json:"roles,omitempty"`
	Encoded    string       `json:"-"`
}

// Summary returns the subset of operator fields shared with the
// access-control service when requesting tokens.
func (o *Operator) Summary() map[string]any {
	s := map[string]any{
		"operatorId": o.OperatorID,
		"type":       int(o.Type),
		"loginId":    o.LoginID,
		"blockCode":  o.BlockCode,
	}
	if o.Roles != nil {
		s["roles"] = o.Roles
	}
	return s
}

// MarshalSession serializes the operator into the JSON shape expected by
// peers consuming the session header.
func (o *Operator) MarshalSession() ([]byte, error) {
	return json.Marshal(o)
}
