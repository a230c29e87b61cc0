package validate_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
	"github.com/purrfectstays/waitlist-api/internal/pkg/validate"
)

func TestStruct_ValidRequest(t *testing.T) {
	req := &waitlist.RegisterRequest{Email: "jane@example.com", Name: "Jane", UserType: waitlist.UserTypeCatParent}
	if err := validate.Struct(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStruct_CollectsAllFieldErrors(t *testing.T) {
	req := &waitlist.RegisterRequest{Email: "nope", Name: "", UserType: "dog-parent"}
	err := validate.Struct(req)
	var ve *validate.Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *validate.Error, got %v", err)
	}
	if len(ve.Details) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %v", len(ve.Details), ve.Details)
	}
}

func TestStruct_OneofMessageListsAllowedValues(t *testing.T) {
	req := &waitlist.RegisterRequest{Email: "jane@example.com", Name: "Jane", UserType: "hamster-parent"}
	err := validate.Struct(req)
	var ve *validate.Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *validate.Error, got %v", err)
	}
	if !strings.Contains(ve.Details[0], "cat-parent, cattery-owner") {
		t.Fatalf("expected allowed values in message, got %q", ve.Details[0])
	}
}

func TestStruct_TokenLength(t *testing.T) {
	req := &waitlist.RegisterRequest{
		Email: "jane@example.com", Name: "Jane", UserType: waitlist.UserTypeCatParent,
		VerificationToken: "tooshort",
	}
	if err := validate.Struct(req); err == nil {
		t.Fatalf("expected a length error for a short token")
	}

	req.VerificationToken = strings.Repeat("zz", 32)
	if err := validate.Struct(req); err == nil {
		t.Fatalf("expected a hexadecimal error for non-hex token")
	}

	req.VerificationToken = strings.Repeat("ab", 32)
	if err := validate.Struct(req); err != nil {
		t.Fatalf("unexpected error for a well-formed token: %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Jane", "Jane"},
		{"  Jane   Doe  ", "Jane Doe"},
		{"<script>alert(1)</script>", "alert(1)"},
		{"<b>Jane</b>", "Jane"},
		{"Jane > Doe < Smith", "Jane Doe Smith"},
	}
	for _, tc := range cases {
		if got := validate.SanitizeName(tc.in); got != tc.want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
