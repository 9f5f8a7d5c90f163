package schema

import (
	"testing"
	"time"
)

func TestValidIPv4(t *testing.T) {
	tests := []struct {
		name  string
		addr  string
		valid bool
	}{
		{"valid address", "192.168.1.1", true},
		{"valid boundary low", "0.0.0.0", true},
		{"valid boundary high", "255.255.255.255", true},
		{"documentation range", "203.0.113.5", true},
		{"leading zero octet", "01.2.3.4", true},
		{"octet too large", "256.1.1.1", false},
		{"negative octet", "-1.1.1.1", false},
		{"three octets", "10.0.0", false},
		{"five octets", "10.0.0.1.2", false},
		{"empty octet", "10..0.1", false},
		{"non numeric", "a.b.c.d", false},
		{"trailing garbage", "10.0.0.1x", false},
		{"empty string", "", false},
		{"ipv6", "::1", false},
		{"octet four digits", "1.2.3.0123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidIPv4(tt.addr); got != tt.valid {
				t.Errorf("ValidIPv4(%q) = %v, want %v", tt.addr, got, tt.valid)
			}
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()
	now := time.Now()

	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{
			name: "valid firewall record",
			record: Record{
				Timestamp: now,
				SourceIP:  "203.0.113.5",
				Kind:      KindFirewall,
				Firewall: &FirewallFields{
					DestinationIP: "10.0.0.1",
					Port:          443,
					Protocol:      "TCP",
					Action:        ActionDeny,
				},
			},
		},
		{
			name: "valid auth record",
			record: Record{
				Timestamp: now,
				SourceIP:  "198.51.100.7",
				Kind:      KindAuthentication,
				Auth: &AuthFields{
					Username: "admin",
					Service:  "ssh",
					Action:   AuthFail,
				},
			},
		},
		{
			name: "invalid source address",
			record: Record{
				Timestamp: now,
				SourceIP:  "300.1.1.1",
				Kind:      KindFirewall,
				Firewall:  &FirewallFields{Action: ActionDeny},
			},
			wantErr: true,
		},
		{
			name: "missing kind fields",
			record: Record{
				Timestamp: now,
				SourceIP:  "203.0.113.5",
				Kind:      KindFirewall,
			},
			wantErr: true,
		},
		{
			name: "bad firewall action",
			record: Record{
				Timestamp: now,
				SourceIP:  "203.0.113.5",
				Kind:      KindFirewall,
				Firewall:  &FirewallFields{Action: "DROP"},
			},
			wantErr: true,
		},
		{
			name: "port out of range",
			record: Record{
				Timestamp: now,
				SourceIP:  "203.0.113.5",
				Kind:      KindFirewall,
				Firewall:  &FirewallFields{Port: 70000, Action: ActionDeny},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.record)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordPredicates(t *testing.T) {
	failed := Record{
		Kind: KindAuthentication,
		Auth: &AuthFields{Action: AuthFail},
	}
	if !failed.IsFailedAuth() {
		t.Error("expected failed auth record to report IsFailedAuth")
	}
	if failed.IsDenied() {
		t.Error("auth record must not report IsDenied")
	}

	denied := Record{
		Kind:     KindFirewall,
		Firewall: &FirewallFields{Action: ActionDeny},
	}
	if !denied.IsDenied() {
		t.Error("expected denied firewall record to report IsDenied")
	}

	allowed := Record{
		Kind:     KindFirewall,
		Firewall: &FirewallFields{Action: ActionAllow},
	}
	if allowed.IsDenied() {
		t.Error("allowed firewall record must not report IsDenied")
	}
}
