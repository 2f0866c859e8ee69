// Package validate checks user input before it is sent to the backend.
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Roles, property types, amenities and statuses accepted by the backend.
var (
	Roles           = []string{"tenant", "agent", "landlord", "admin"}
	PropertyTypes   = []string{"apartment", "house", "condo", "studio", "duplex", "townhouse", "villa"}
	BookingStatuses = []string{"pending", "confirmed", "cancelled", "completed"}
	PaymentStatuses = []string{"pending", "completed", "failed", "refunded"}
	Amenities       = []string{
		"wifi", "parking", "pool", "gym", "ac", "heating", "laundry", "security",
		"furnished", "pet-friendly", "balcony", "garden", "elevator", "doorman",
		"rooftop", "storage",
	}
)

var (
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe   = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	ngPhoneRe = regexp.MustCompile(`^(\+234|0)[789][01]\d{8}$`)
	elevenRe  = regexp.MustCompile(`^\d{11}$`)
)

// Email reports whether s looks like an email address.
func Email(s string) bool {
	return emailRe.MatchString(s)
}

// Password requires at least 8 characters with an upper-case letter,
// a lower-case letter and a digit.
func Password(s string) bool {
	if len(s) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// Phone accepts an international number, ignoring spaces, dashes and parentheses.
func Phone(s string) bool {
	return phoneRe.MatchString(strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(s))
}

// NigerianPhone accepts +234 or 0 followed by a 7/8/9 and 0/1 prefix and eight digits.
func NigerianPhone(s string) bool {
	return ngPhoneRe.MatchString(strings.ReplaceAll(s, " ", ""))
}

// NIN checks a National Identification Number (11 digits).
func NIN(s string) bool {
	return elevenRe.MatchString(s)
}

// BVN checks a Bank Verification Number (11 digits).
func BVN(s string) bool {
	return elevenRe.MatchString(s)
}

// URL reports whether s parses as an absolute URL.
func URL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Coordinates checks latitude and longitude ranges.
func Coordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// FutureDate reports whether t falls on today or later.
func FutureDate(t, now time.Time) bool {
	y, m, d := now.Date()
	return !t.Before(time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
}

// Role reports whether r is a known user role.
func Role(r string) bool { return slices.Contains(Roles, r) }

// PropertyType reports whether t is a known property type.
func PropertyType(t string) bool { return slices.Contains(PropertyTypes, t) }

// BookingStatus reports whether s is a known booking status.
func BookingStatus(s string) bool { return slices.Contains(BookingStatuses, s) }

// PaymentStatus reports whether s is a known payment status.
func PaymentStatus(s string) bool { return slices.Contains(PaymentStatuses, s) }

// AmenityList reports whether every entry is a known amenity.
func AmenityList(list []string) bool {
	for _, a := range list {
		if !slices.Contains(Amenities, a) {
			return false
		}
	}
	return true
}

// Errors maps a field name to its first validation message.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[f]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for one field, or "".
func (e Errors) Field(name string) string {
	return e[name]
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())

	// report json names so messages line up with form fields
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	custom := map[string]func(string) bool{
		"password":       Password,
		"ngphone":        NigerianPhone,
		"nin":            NIN,
		"role":           Role,
		"property_type":  PropertyType,
		"booking_status": BookingStatus,
		"payment_status": PaymentStatus,
		"amenity":        func(s string) bool { return slices.Contains(Amenities, s) },
	}
	for tag, fn := range custom {
		check := fn
		if err := val.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("registering %s validation: %v", tag, err))
		}
	}
	return val
}

var messages = map[string]string{
	"required":       "This field is required",
	"email":          "Please enter a valid email address",
	"password":       "Password must be at least 8 characters with uppercase, lowercase, and number",
	"eqfield":        "Passwords do not match",
	"ngphone":        "Please enter a valid Nigerian phone number",
	"nin":            "Must be 11 digits",
	"role":           "Please select a valid role",
	"property_type":  "Please select a valid property type",
	"booking_status": "Invalid booking status",
	"payment_status": "Invalid payment status",
	"amenity":        "Unknown amenity",
	"url":            "Please enter a valid URL",
}

// Struct validates s by its `validate` tags and returns Errors on failure.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	if m, ok := messages[fe.Tag()]; ok {
		return m
	}
	switch fe.Tag() {
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be no more than %s characters long", fe.Param())
		}
		return fmt.Sprintf("Must be no more than %s", fe.Param())
	case "gt":
		return "Must be a positive number"
	case "oneof":
		return "Must be one of " + fe.Param()
	}
	return "Invalid value"
}

// SignUp is the registration form.
type SignUp struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	FullName        string `json:"full_name" validate:"required,max=120"`
	Phone           string `json:"phone" validate:"omitempty,ngphone"`
	Role            string `json:"role" validate:"required,role"`
}
