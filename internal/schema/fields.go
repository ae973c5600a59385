package schema

import (
	"errors"
	"fmt"
)

// FieldType is the declared value type of a canonical field.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeCurrency FieldType = "currency"
	TypeDate     FieldType = "date"
	TypePhone    FieldType = "phone"
	TypeEmail    FieldType = "email"
)

// Canonical field names.
const (
	FieldCustomerName = "customer_name"
	FieldService      = "service"
	FieldAmount       = "amount"
	FieldDate         = "date"
	FieldPhone        = "phone"
	FieldEmail        = "email"
)

// ErrInvalidField is returned for a malformed canonical field table.
var ErrInvalidField = errors.New("invalid canonical field")

// Field is one row of the canonical field table. Patterns are tried in order.
type Field struct {
	Name     string    `yaml:"name" mapstructure:"name"`
	Patterns []string  `yaml:"patterns" mapstructure:"patterns"`
	Required bool      `yaml:"required" mapstructure:"required"`
	Type     FieldType `yaml:"type" mapstructure:"type"`
}

// DefaultFields returns the built-in field table in declared (priority) order.
func DefaultFields() []Field {
	return []Field{
		{
			Name: FieldCustomerName,
			Patterns: []string{
				"patient name", "customer name", "client name", "name",
				"patient", "customer", "client", "patient_name", "customer_name",
				"client_name", "full name", "fullname", "member name", "member_name",
			},
			Required: true,
			Type:     TypeString,
		},
		{
			Name: FieldService,
			Patterns: []string{
				"service", "treatment", "procedure", "product name", "product_name",
				"service type", "service_type", "treatment type", "treatment_type",
				"description", "service description", "treatment description",
				"product", "item", "service_description", "reward description",
				"reward_description", "treatment areas", "treatment_areas",
			},
			Required: true,
			Type:     TypeString,
		},
		{
			Name: FieldAmount,
			Patterns: []string{
				"amount", "total", "price", "cost", "charge", "fee", "value",
				"reward value", "reward_value", "points earned", "points_earned",
				"total amount", "total_amount", "transaction amount", "payment amount",
				"disbursement amount", "disbursement_amount",
			},
			Required: true,
			Type:     TypeCurrency,
		},
		{
			Name: FieldDate,
			Patterns: []string{
				"date", "transaction date", "treatment date", "service date",
				"appointment date", "visit date", "date issued", "created date",
				"transaction_date", "treatment_date", "service_date", "date_issued",
				"disbursement date", "disbursement_date",
			},
			Required: true,
			Type:     TypeDate,
		},
		{
			Name: FieldPhone,
			Patterns: []string{
				"phone", "phone number", "patient phone", "customer phone",
				"phone_number", "patient_phone_number", "customer_phone_number",
				"mobile", "cell", "telephone",
			},
			Type: TypePhone,
		},
		{
			Name: FieldEmail,
			Patterns: []string{
				"email", "email address", "patient email", "customer email",
				"email_address", "patient_email", "customer_email",
			},
			Type: TypeEmail,
		},
	}
}

func validType(t FieldType) bool {
	switch t {
	case TypeString, TypeCurrency, TypeDate, TypePhone, TypeEmail:
		return true
	}
	return false
}

// ValidateFields checks a field table before it is handed to a Mapper.
func ValidateFields(fields []Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty field table", ErrInvalidField)
	}
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field %d has no name", ErrInvalidField, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidField, f.Name)
		}
		seen[f.Name] = true
		if !validType(f.Type) {
			return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidField, f.Name, f.Type)
		}
		usable := false
		for _, p := range f.Patterns {
			if NormalizeHeader(p) != "" {
				usable = true
				break
			}
		}
		if !usable {
			return fmt.Errorf("%w: field %q has no usable patterns", ErrInvalidField, f.Name)
		}
	}
	return nil
}
