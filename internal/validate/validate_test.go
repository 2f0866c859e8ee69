package validate

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPassword(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Secret123", true},
		{"secret123", false},
		{"SECRET123", false},
		{"SecretOne", false},
		{"Sec1", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Password(tt.in); got != tt.want {
			t.Errorf("Password(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNigerianPhone(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"08031234567", true},
		{"+2348031234567", true},
		{"0803 123 4567", true},
		{"07011234567", true},
		{"06031234567", false},
		{"0803123456", false},
		{"+4478031234567", false},
	}
	for _, tt := range tests {
		if got := NigerianPhone(tt.in); got != tt.want {
			t.Errorf("NigerianPhone(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSimpleChecks(t *testing.T) {
	if !Email("ada@example.com") || Email("ada@example") || Email("a b@c.d") {
		t.Error("email checks wrong")
	}
	if !Phone("+1 (555) 123-4567") || Phone("0123") {
		t.Error("phone checks wrong")
	}
	if !NIN("12345678901") || NIN("1234") || !BVN("22222222222") {
		t.Error("nin/bvn checks wrong")
	}
	if !URL("https://smartrent.ng/p/1") || URL("not a url") {
		t.Error("url checks wrong")
	}
	if !Coordinates(6.5244, 3.3792) || Coordinates(91, 0) || Coordinates(0, -181) {
		t.Error("coordinate checks wrong")
	}
	if !Role("landlord") || Role("owner") {
		t.Error("role checks wrong")
	}
	if !PropertyType("duplex") || PropertyType("castle") {
		t.Error("property type checks wrong")
	}
	if !BookingStatus("confirmed") || BookingStatus("done") {
		t.Error("booking status checks wrong")
	}
	if !PaymentStatus("refunded") || PaymentStatus("paid") {
		t.Error("payment status checks wrong")
	}
	if !AmenityList([]string{"wifi", "pet-friendly"}) || AmenityList([]string{"wifi", "helipad"}) {
		t.Error("amenity checks wrong")
	}
}

func TestFutureDate(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC)
	if !FutureDate(now.Add(-time.Hour), now) {
		t.Error("earlier today should count as today")
	}
	if FutureDate(now.AddDate(0, 0, -1), now) {
		t.Error("yesterday should not be a future date")
	}
}

func TestSignUp(t *testing.T) {
	valid := SignUp{
		Email:           "ada@example.com",
		Password:        "Secret123",
		ConfirmPassword: "Secret123",
		FullName:        "Ada Obi",
		Role:            "tenant",
	}

	tests := []struct {
		name      string
		mutate    func(*SignUp)
		wantField string
		wantMsg   string
	}{
		{"valid", func(*SignUp) {}, "", ""},
		{"bad email", func(s *SignUp) { s.Email = "ada" }, "email", "Please enter a valid email address"},
		{"weak password", func(s *SignUp) { s.Password, s.ConfirmPassword = "password", "password" }, "password", "Password must be at least 8 characters with uppercase, lowercase, and number"},
		{"mismatch", func(s *SignUp) { s.ConfirmPassword = "Secret124" }, "confirm_password", "Passwords do not match"},
		{"missing role", func(s *SignUp) { s.Role = "" }, "role", "This field is required"},
		{"invalid role", func(s *SignUp) { s.Role = "owner" }, "role", "Please select a valid role"},
		{"bad phone", func(s *SignUp) { s.Phone = "12345" }, "phone", "Please enter a valid Nigerian phone number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid
			tt.mutate(&form)
			err := Struct(form)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("err = %v, want Errors", err)
			}
			if got := verrs.Field(tt.wantField); got != tt.wantMsg {
				t.Errorf("%s message = %q, want %q (all: %v)", tt.wantField, got, tt.wantMsg, verrs)
			}
		})
	}
}

func TestErrorsString(t *testing.T) {
	err := Errors{"role": "Please select a valid role", "email": "bad"}
	got := err.Error()
	if !strings.HasPrefix(got, "validation failed: email: bad; role:") {
		t.Errorf("Error() = %q", got)
	}
}
