package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, "", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, expires, err := issuer.GenerateToken(Employee{ID: "emp-42", OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("expected future expiry, got %v", expires)
	}
	claims, err := issuer.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "emp-42" || claims.OrganizationID != "org-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Issuer != DefaultIssuer || claims.ID == "" {
		t.Fatalf("missing registered claims %+v", claims.RegisteredClaims)
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, "hr-management", time.Hour)
	other, _ := NewTokenIssuer("ffffffffffffffffffffffffffffffff", "hr-management", time.Hour)
	foreign, _ := NewTokenIssuer(testSecret, "someone-else", time.Hour)

	token, _, err := other.GenerateToken(Employee{ID: "emp-1"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := issuer.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature failure, got %v", err)
	}

	token, _, _ = foreign.GenerateToken(Employee{ID: "emp-1"})
	if _, err := issuer.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected issuer failure, got %v", err)
	}

	if _, err := issuer.ParseAndValidate("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected malformed token failure, got %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, "", time.Minute)
	issued := time.Now().Add(-2 * time.Hour)
	issuer.now = func() time.Time { return issued }
	token, _, err := issuer.GenerateToken(Employee{ID: "emp-1"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	issuer.now = time.Now
	if _, err := issuer.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestNewTokenIssuerValidation(t *testing.T) {
	if _, err := NewTokenIssuer(" ", "", time.Hour); err == nil {
		t.Fatalf("expected missing secret error")
	}
	if _, err := NewTokenIssuer(testSecret, "", 0); err == nil {
		t.Fatalf("expected ttl error")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "s3cret"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "other"); err == nil {
		t.Fatalf("expected mismatch")
	}
	if _, err := HashPassword(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty password, got %v", err)
	}
}

func TestPrincipalPermissions(t *testing.T) {
	principal := NewPrincipal(Actor{EmployeeID: "e1"}, []Permission{{ID: "p1", Name: PermApproveLeaves}})
	if !principal.HasPermission(PermApproveLeaves) {
		t.Fatalf("expected permission")
	}
	if principal.HasPermission(PermManagePayroll) {
		t.Fatalf("unexpected permission")
	}
	root := NewPrincipal(Actor{EmployeeID: "e0", Super: true}, nil)
	if !root.HasPermission("anything") {
		t.Fatalf("super actor must hold every permission")
	}
}
