package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator handles validation of records against the canonical schema.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator with the strict IPv4 rule registered.
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("ipv4_strict", func(fl validator.FieldLevel) bool {
		return ValidIPv4(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Validate validates a record against the canonical schema.
// Returns an error if validation fails.
func (v *Validator) Validate(record *Record) error {
	if err := v.validate.Struct(record); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if record.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	switch record.Kind {
	case KindFirewall:
		if record.Firewall == nil {
			return fmt.Errorf("firewall record missing firewall fields")
		}
	case KindAuthentication:
		if record.Auth == nil {
			return fmt.Errorf("authentication record missing auth fields")
		}
	default:
		return fmt.Errorf("unknown record kind: %q", record.Kind)
	}

	return nil
}

// ValidIPv4 checks that an address is a syntactically valid dotted-quad:
// four dot-separated decimal octets, each in 0-255. Leading-zero octets
// such as 01.2.3.4 are accepted. Unlike net.ParseIP, IPv6 forms are
// rejected.
func ValidIPv4(addr string) bool {
	parts := strings.Split(addr, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return false
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}
