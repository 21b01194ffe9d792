package services

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/taskflow/backend/internal/config"
)

var (
	ErrLDAPDisabled       = errors.New("LDAP is not enabled")
	ErrLDAPInvalidCreds   = errors.New("invalid credentials")
	ErrLDAPUserNotFound   = errors.New("user not found in LDAP")
	ErrLDAPAmbiguousMatch = errors.New("multiple users found in LDAP")
)

var ldapAttributes = []string{"dn", "cn", "displayName", "mail", "uid", "sAMAccountName"}

type LDAPUser struct {
	DN       string
	Username string
	Email    string
	Name     string
}

type LDAPService struct {
	config *config.LDAPConfig
}

func NewLDAPService(cfg *config.LDAPConfig) *LDAPService {
	return &LDAPService{config: cfg}
}

func (s *LDAPService) searchFilter(username string) string {
	filter := s.config.UserFilter
	if !strings.Contains(filter, "%s") {
		filter = "(uid=%s)"
	}
	return fmt.Sprintf(filter, ldap.EscapeFilter(username))
}

func (s *LDAPService) dial() (*ldap.Conn, error) {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if s.config.UseSSL {
		return ldap.DialURL("ldaps://"+addr, ldap.DialWithTLSConfig(&tls.Config{ServerName: s.config.Host}))
	}
	return ldap.DialURL("ldap://" + addr)
}

// Authenticate binds as the service account, looks the user up, then
// re-binds as that user to verify the password.
func (s *LDAPService) Authenticate(username, password string) (*LDAPUser, error) {
	if s.config == nil || !s.config.Enabled {
		return nil, ErrLDAPDisabled
	}
	if password == "" {
		// An empty password would be an unauthenticated bind and always succeed.
		return nil, ErrLDAPInvalidCreds
	}

	conn, err := s.dial()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}
	defer conn.Close()

	if s.config.BindDN != "" {
		if err := conn.Bind(s.config.BindDN, s.config.BindPassword); err != nil {
			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	result, err := conn.Search(ldap.NewSearchRequest(
		s.config.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		s.searchFilter(username),
		ldapAttributes,
		nil,
	))
	if err != nil {
		return nil, fmt.Errorf("LDAP search failed: %w", err)
	}

	switch len(result.Entries) {
	case 0:
		return nil, ErrLDAPUserNotFound
	case 1:
	default:
		return nil, ErrLDAPAmbiguousMatch
	}

	entry := result.Entries[0]
	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, ErrLDAPInvalidCreds
	}

	return entryToUser(entry), nil
}

func entryToUser(entry *ldap.Entry) *LDAPUser {
	user := &LDAPUser{
		DN:       entry.DN,
		Username: entry.GetAttributeValue("uid"),
		Email:    entry.GetAttributeValue("mail"),
		Name:     entry.GetAttributeValue("displayName"),
	}
	// Active Directory
	if user.Username == "" {
		user.Username = entry.GetAttributeValue("sAMAccountName")
	}
	if user.Name == "" {
		user.Name = entry.GetAttributeValue("cn")
	}
	return user
}
