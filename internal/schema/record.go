// Package schema defines the canonical record schema for the log analyzer.
// All loaded log rows are normalized to this structure before detection.
package schema

import (
	"time"
)

// Record represents one observed security event, either a firewall traffic
// record or an authentication event. Kind-specific fields live in the
// Firewall and Auth sub-structs; exactly one of them is set.
type Record struct {
	Timestamp time.Time `json:"timestamp" validate:"required"`
	SourceIP  string    `json:"source_ip" validate:"required,ipv4_strict"`
	Kind      Kind      `json:"kind" validate:"required,oneof=firewall authentication"`

	Firewall *FirewallFields `json:"firewall,omitempty"`
	Auth     *AuthFields     `json:"auth,omitempty"`
}

// FirewallFields holds the firewall-specific attributes of a record.
type FirewallFields struct {
	DestinationIP string         `json:"destination_ip" validate:"omitempty,ipv4_strict"`
	Port          int            `json:"port" validate:"min=0,max=65535"`
	Protocol      string         `json:"protocol" validate:"max=32"`
	Action        FirewallAction `json:"action" validate:"required,oneof=ALLOW DENY"`
}

// AuthFields holds the authentication-specific attributes of a record.
type AuthFields struct {
	Username string     `json:"username" validate:"max=256"`
	Service  string     `json:"service" validate:"max=256"`
	Action   AuthAction `json:"action" validate:"required,oneof=SUCCESS FAIL"`
}

// Kind tags a record as firewall traffic or an authentication event.
type Kind string

const (
	KindFirewall       Kind = "firewall"
	KindAuthentication Kind = "authentication"
)

// IsValid checks if the kind is a valid value.
func (k Kind) IsValid() bool {
	switch k {
	case KindFirewall, KindAuthentication:
		return true
	}
	return false
}

// FirewallAction is the firewall verdict for a traffic record.
type FirewallAction string

const (
	ActionAllow FirewallAction = "ALLOW"
	ActionDeny  FirewallAction = "DENY"
)

// IsValid checks if the firewall action is a valid value.
func (a FirewallAction) IsValid() bool {
	return a == ActionAllow || a == ActionDeny
}

// AuthAction is the outcome of an authentication attempt.
type AuthAction string

const (
	AuthSuccess AuthAction = "SUCCESS"
	AuthFail    AuthAction = "FAIL"
)

// IsValid checks if the auth action is a valid value.
func (a AuthAction) IsValid() bool {
	return a == AuthSuccess || a == AuthFail
}

// IsFailedAuth reports whether the record is a failed authentication attempt.
func (r *Record) IsFailedAuth() bool {
	return r.Kind == KindAuthentication && r.Auth != nil && r.Auth.Action == AuthFail
}

// IsDenied reports whether the record is a denied firewall attempt.
func (r *Record) IsDenied() bool {
	return r.Kind == KindFirewall && r.Firewall != nil && r.Firewall.Action == ActionDeny
}
