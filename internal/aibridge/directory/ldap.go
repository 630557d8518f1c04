package directory

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dao"
	"github.com/go-ldap/ldap/v3"
)

const searchPageSize = 100

type LdapClient struct {
	dialTimeout time.Duration
}

func NewLdapClient(dialTimeout time.Duration) *LdapClient {
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &LdapClient{dialTimeout: dialTimeout}
}

func (c *LdapClient) dial(config *dao.LdapConfig) (*ldap.Conn, error) {
	conn, err := ldap.DialURL(config.ServerURL,
		ldap.DialWithDialer(&net.Dialer{Timeout: c.dialTimeout}))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w: %v", config.ServerURL, ErrConnection, err)
	}
	conn.SetTimeout(c.dialTimeout)

	if err := conn.StartTLS(&tls.Config{InsecureSkipVerify: true}); err != nil {
		slog.Debug("Start LDAP TLS", "server", config.ServerURL, "err", err)
	}

	return conn, nil
}

// Connect устанавливает соединение и выполняет bind сервисной учётной записью арендатора.
func (c *LdapClient) Connect(config *dao.LdapConfig) (Session, error) {
	conn, err := c.dial(config)
	if err != nil {
		return nil, err
	}

	if err := conn.Bind(config.BindDN, config.BindPassword); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind %s: %w: %v", config.BindDN, ErrConnection, err)
	}

	return &ldapSession{conn: conn}, nil
}

// BindAs проверяет учётные данные пользователя на отдельном соединении,
// никогда не переиспользуя сервисное. Пустой пароль отклоняется сразу:
// LDAP трактует его как анонимный bind, который "успешен" для любого DN.
func (c *LdapClient) BindAs(config *dao.LdapConfig, dn, credential string) (bool, error) {
	if credential == "" {
		return false, nil
	}

	conn, err := c.dial(config)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	if err := conn.Bind(dn, credential); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return false, nil
		}
		return false, fmt.Errorf("bind %s: %w: %v", dn, ErrConnection, err)
	}
	return true, nil
}

type ldapSession struct {
	conn      *ldap.Conn
	closeOnce sync.Once
}

func (s *ldapSession) Search(baseDN, filter string, attributes []string) ([]Entry, error) {
	searchRequest := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter,
		attributes,
		nil,
	)

	sr, err := s.conn.SearchWithPaging(searchRequest, searchPageSize)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w: %v", filter, ErrSearch, err)
	}

	entries := make([]Entry, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		attrs := make(map[string][]string, len(entry.Attributes))
		for _, attr := range entry.Attributes {
			attrs[attr.Name] = attr.Values
		}
		entries = append(entries, Entry{DN: entry.DN, Attrs: attrs})
	}
	return entries, nil
}

func (s *ldapSession) Bind(dn, credential string) error {
	return s.conn.Bind(dn, credential)
}

func (s *ldapSession) Close() error {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
	return nil
}

// EscapeFilter экранирует значение для подстановки в фильтр каталога.
func EscapeFilter(value string) string {
	return ldap.EscapeFilter(value)
}

// IdentityFilter строит фильтр поиска одной личности: совпадение по атрибуту
// идентификатора или почты, в пересечении с настроенным фильтром пользователей арендатора.
func IdentityFilter(config *dao.LdapConfig, identity string) string {
	escaped := EscapeFilter(identity)
	match := fmt.Sprintf("(|(%s=%s)(%s=%s))",
		config.IdAttribute(), escaped,
		config.EmailAttribute(), escaped)
	return fmt.Sprintf("(&%s%s)", config.Filter(), match)
}
