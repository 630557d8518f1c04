package authprovider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/config"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dao"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/directory"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dto"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/maintenance"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

func TestMain(m *testing.M) {
	var err error
	db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		os.Exit(1)
	}

	if err := db.AutoMigrate(&dao.LdapConfig{}, &dao.LdapUser{}); err != nil {
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// fakeClient моделирует каталог с проверкой пароля по DN.
type fakeClient struct {
	entries    []directory.Entry
	passwords  map[string]string // dn -> credential
	connectErr error
	searchErr  error

	// Снапшот для полного поиска по фильтру пользователей; nil - вернуть entries
	snapshot []directory.Entry

	// Если заданы, полный поиск сигнализирует о старте и блокируется до закрытия gate
	syncStarted chan struct{}
	syncGate    chan struct{}
}

func (c *fakeClient) Connect(cfg *dao.LdapConfig) (directory.Session, error) {
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	return &fakeSession{client: c}, nil
}

func (c *fakeClient) BindAs(cfg *dao.LdapConfig, dn, credential string) (bool, error) {
	if c.connectErr != nil {
		return false, c.connectErr
	}
	if credential == "" {
		return false, nil
	}
	return c.passwords[dn] == credential, nil
}

type fakeSession struct {
	client *fakeClient
}

// Search отбирает записи, чьи значения атрибутов подставлены в фильтр личности.
// Полный фильтр пользователей арендатора возвращает снапшот целиком.
func (s *fakeSession) Search(baseDN, filter string, attributes []string) ([]directory.Entry, error) {
	if s.client.searchErr != nil {
		return nil, s.client.searchErr
	}
	if !strings.Contains(filter, "(|(") {
		if s.client.syncStarted != nil {
			s.client.syncStarted <- struct{}{}
		}
		if s.client.syncGate != nil {
			<-s.client.syncGate
		}
		if s.client.snapshot != nil {
			return s.client.snapshot, nil
		}
		return s.client.entries, nil
	}
	var matched []directory.Entry
	for _, entry := range s.client.entries {
		if entryMatches(entry, filter) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func entryMatches(entry directory.Entry, filter string) bool {
	for _, vals := range entry.Attrs {
		for _, v := range vals {
			if strings.Contains(filter, "="+directory.EscapeFilter(v)+")") {
				return true
			}
		}
	}
	return false
}

func (s *fakeSession) Bind(dn, credential string) error { return nil }
func (s *fakeSession) Close() error                     { return nil }

func createConfig(t *testing.T, tenantId string, enabled bool) *dao.LdapConfig {
	t.Helper()
	cfg := &dao.LdapConfig{
		ID:           dao.GenUUID(),
		TenantId:     tenantId,
		Enabled:      enabled,
		ServerURL:    "ldap://ldap.example.com:389",
		BindDN:       "cn=admin,dc=example,dc=com",
		BindPassword: "secret",
		BaseDN:       "dc=example,dc=com",
		SyncInterval: 30,
	}
	require.NoError(t, db.Create(cfg).Error)
	return cfg
}

func aliceDirectory() *fakeClient {
	return &fakeClient{
		entries: []directory.Entry{{
			DN: "uid=alice,ou=people,dc=example,dc=com",
			Attrs: map[string][]string{
				"uid":  {"alice"},
				"mail": {"a@x.com"},
				"cn":   {"Alice"},
			},
		}},
		passwords: map[string]string{
			"uid=alice,ou=people,dc=example,dc=com": "correct-horse",
		},
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	createConfig(t, "auth-ok", true)
	lp := NewLdapProvider(db, aliceDirectory())

	principal, err := lp.Authenticate(context.Background(), "auth-ok", "alice", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, principal)
	assert.Equal(t, "alice", principal.LdapUid)
	assert.Equal(t, "a@x.com", principal.Email)
	assert.True(t, principal.LinkRequired)
	assert.Nil(t, principal.AccountId)

	// First successful bind creates the cache record
	users, err := dao.GetLdapUsers(db, "auth-ok", true)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].LdapUid)
}

func TestAuthenticateByEmail(t *testing.T) {
	createConfig(t, "auth-email", true)
	lp := NewLdapProvider(db, aliceDirectory())

	principal, err := lp.Authenticate(context.Background(), "auth-email", "a@x.com", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, principal)
	assert.Equal(t, "alice", principal.LdapUid)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	createConfig(t, "auth-wrong", true)
	lp := NewLdapProvider(db, aliceDirectory())

	principal, err := lp.Authenticate(context.Background(), "auth-wrong", "alice", "wrongpass")
	require.NoError(t, err, "wrong credentials are an expected outcome, not an error")
	assert.Nil(t, principal)
}

func TestAuthenticateUnknownIdentity(t *testing.T) {
	createConfig(t, "auth-unknown", true)
	lp := NewLdapProvider(db, aliceDirectory())

	principal, err := lp.Authenticate(context.Background(), "auth-unknown", "mallory", "whatever")
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestAuthenticateEmptyCredential(t *testing.T) {
	createConfig(t, "auth-empty", true)
	lp := NewLdapProvider(db, aliceDirectory())

	principal, err := lp.Authenticate(context.Background(), "auth-empty", "alice", "")
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestAuthenticateNoConfig(t *testing.T) {
	lp := NewLdapProvider(db, aliceDirectory())

	principal, err := lp.Authenticate(context.Background(), "auth-missing", "alice", "correct-horse")
	require.NoError(t, err, "tenant without directory auth is not an error")
	assert.Nil(t, principal)
}

func TestAuthenticateDisabledConfig(t *testing.T) {
	createConfig(t, "auth-disabled-cfg", false)
	lp := NewLdapProvider(db, aliceDirectory())

	principal, err := lp.Authenticate(context.Background(), "auth-disabled-cfg", "alice", "correct-horse")
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestAuthenticateLocalDisableOverridesBind(t *testing.T) {
	createConfig(t, "auth-override", true)
	lp := NewLdapProvider(db, aliceDirectory())

	principal, err := lp.Authenticate(context.Background(), "auth-override", "alice", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, principal)

	_, err = dao.SetLdapUserStatus(db, "auth-override", principal.LdapUserId.String(), false)
	require.NoError(t, err)

	principal, err = lp.Authenticate(context.Background(), "auth-override", "alice", "correct-horse")
	require.NoError(t, err)
	assert.Nil(t, principal, "locally disabled record must fail auth even with valid credentials")
}

func TestAuthenticateLinkedAccount(t *testing.T) {
	createConfig(t, "auth-linked", true)
	lp := NewLdapProvider(db, aliceDirectory())

	principal, err := lp.Authenticate(context.Background(), "auth-linked", "alice", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, principal)

	user, err := dao.GetLdapUser(db, "auth-linked", principal.LdapUserId.String())
	require.NoError(t, err)
	require.NoError(t, dao.LinkLdapUserAccount(db, user, "account-42"))

	principal, err = lp.Authenticate(context.Background(), "auth-linked", "alice", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, principal)
	require.NotNil(t, principal.AccountId)
	assert.Equal(t, "account-42", *principal.AccountId)
	assert.False(t, principal.LinkRequired)
}

func TestAuthenticateWaitsForRunningSync(t *testing.T) {
	createConfig(t, "auth-mid-sync", true)
	client := aliceDirectory()
	client.snapshot = append([]directory.Entry(nil), client.entries...)
	client.entries = append(client.entries, directory.Entry{
		DN: "uid=bob,ou=people,dc=example,dc=com",
		Attrs: map[string][]string{
			"uid":  {"bob"},
			"mail": {"b@x.com"},
			"cn":   {"Bob"},
		},
	})
	client.passwords["uid=bob,ou=people,dc=example,dc=com"] = "builder"
	client.syncStarted = make(chan struct{}, 1)
	client.syncGate = make(chan struct{})

	ls := maintenance.NewLdapSynchronizer(db, client, &config.Config{
		LdapMaxSnapshot: 100,
		LdapSyncBudget:  30,
	})
	lp := NewLdapProvider(db, client)

	syncDone := make(chan *maintenance.SyncResult, 1)
	go func() {
		syncDone <- ls.SyncTenant(context.Background(), "auth-mid-sync")
	}()

	select {
	case <-client.syncStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("sync pass never started")
	}

	// Боба нет в снапшоте, но bind успешен: без сериализации с проходом
	// его свежая запись попала бы под отключение как не наблюдавшаяся
	authDone := make(chan error, 1)
	go func() {
		principal, err := lp.Authenticate(context.Background(), "auth-mid-sync", "bob", "builder")
		if err == nil && principal == nil {
			err = fmt.Errorf("authenticate returned no principal")
		}
		authDone <- err
	}()

	select {
	case <-authDone:
		t.Fatal("authenticate committed while a sync pass held the tenant lock")
	case <-time.After(200 * time.Millisecond):
	}

	close(client.syncGate)
	require.NoError(t, (<-syncDone).Err)
	require.NoError(t, <-authDone)

	users, err := dao.GetLdapUsers(db, "auth-mid-sync", false)
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.True(t, u.Enabled, u.LdapUid)
	}
}

func TestAuthenticateConcurrentFirstSight(t *testing.T) {
	createConfig(t, "auth-first-sight", true)
	lp := NewLdapProvider(db, aliceDirectory())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	principals := make([]*dto.Principal, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			principals[i], errs[i] = lp.Authenticate(context.Background(), "auth-first-sight", "alice", "correct-horse")
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		require.NotNil(t, principals[i])
	}

	users, err := dao.GetLdapUsers(db, "auth-first-sight", true)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAuthenticateDirectoryUnavailable(t *testing.T) {
	createConfig(t, "auth-down", true)
	client := aliceDirectory()
	client.connectErr = fmt.Errorf("%w: dial tcp: refused", directory.ErrConnection)
	lp := NewLdapProvider(db, client)

	principal, err := lp.Authenticate(context.Background(), "auth-down", "alice", "correct-horse")
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.Nil(t, principal)
}
