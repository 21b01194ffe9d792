package services

import (
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/taskflow/backend/internal/config"
)

func TestLDAPService_DisabledOrEmptyPassword(t *testing.T) {
	if _, err := NewLDAPService(&config.LDAPConfig{Enabled: false}).Authenticate("u", "p"); !errors.Is(err, ErrLDAPDisabled) {
		t.Errorf("Authenticate() error = %v, expected ErrLDAPDisabled", err)
	}
	if _, err := NewLDAPService(&config.LDAPConfig{Enabled: true, Host: "ldap.local"}).Authenticate("u", ""); !errors.Is(err, ErrLDAPInvalidCreds) {
		t.Errorf("Authenticate() error = %v, expected ErrLDAPInvalidCreds", err)
	}
}

func TestLDAPService_SearchFilter(t *testing.T) {
	tests := []struct {
		name     string
		filter   string
		username string
		expected string
	}{
		{"default uid", "(uid=%s)", "alice", "(uid=alice)"},
		{"active directory", "(sAMAccountName=%s)", "bob", "(sAMAccountName=bob)"},
		{"escapes injection", "(uid=%s)", "a*)(uid=*", `(uid=a\2a\29\28uid=\2a)`},
		{"missing placeholder", "(objectClass=person)", "carol", "(uid=carol)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewLDAPService(&config.LDAPConfig{UserFilter: tt.filter})
			if got := svc.searchFilter(tt.username); got != tt.expected {
				t.Errorf("searchFilter() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestEntryToUser(t *testing.T) {
	entry := ldap.NewEntry("cn=Dana,ou=people,dc=example,dc=com", map[string][]string{
		"sAMAccountName": {"dana"},
		"cn":             {"Dana Scully"},
		"mail":           {"dana@example.com"},
	})

	user := entryToUser(entry)
	if user.Username != "dana" {
		t.Errorf("Username = %q, expected sAMAccountName fallback", user.Username)
	}
	if user.Name != "Dana Scully" {
		t.Errorf("Name = %q, expected cn fallback", user.Name)
	}
	if user.Email != "dana@example.com" {
		t.Errorf("Email = %q", user.Email)
	}
}
