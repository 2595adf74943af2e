package auth

import (
	"testing"
	"time"
)

func testSigner() Signer {
	return Signer{
		Key:        "test-signing-key",
		Issuer:     "faceattend-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
}

func TestIssueAndParse(t *testing.T) {
	s := testSigner()
	pair, err := s.Issue("teacher@example.com", "teacher")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := s.Parse(pair.AccessToken)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "teacher@example.com" || claims.Role != "teacher" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	s := testSigner()
	pair, err := s.Issue("a@b.co", "student")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := s
	other.Key = "different-key"
	if _, err := other.Parse(pair.AccessToken); err == nil {
		t.Fatal("token accepted with wrong key")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	s := testSigner()
	pair, err := s.Issue("a@b.co", "student")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := s
	other.Issuer = "someone-else"
	if _, err := other.Parse(pair.AccessToken); err == nil {
		t.Fatal("token accepted with wrong issuer")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	s := testSigner()
	s.AccessTTL = -time.Minute
	pair, err := s.Issue("a@b.co", "student")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := s.Parse(pair.AccessToken); err == nil {
		t.Fatal("expired token accepted")
	}
}
