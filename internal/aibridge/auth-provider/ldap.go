package authprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dao"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/directory"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dto"
	"gorm.io/gorm"
)

// Каталог недоступен; вызывающая сторона должна отличать это от неверных
// учётных данных в логах, но не показывать разницу неаутентифицированным пользователям.
var ErrDirectoryUnavailable = errors.New("directory unavailable")

type LdapProvider struct {
	db     *gorm.DB
	client directory.Client
}

func NewLdapProvider(db *gorm.DB, client directory.Client) *LdapProvider {
	return &LdapProvider{db: db, client: client}
}

// Authenticate выполняет search-then-bind: ищет личность сервисным соединением,
// затем проверяет учётные данные отдельным bind по найденному DN.
// Успешный bind создаёт запись в кеше, если её ещё нет, и возвращает принципала.
// Локально отключенная запись отклоняется даже при успешном bind.
func (lp *LdapProvider) Authenticate(ctx context.Context, tenantId, identity, credential string) (*dto.Principal, error) {
	if identity == "" || credential == "" {
		return nil, nil
	}

	ldapConfig, err := dao.GetLdapConfig(lp.db, tenantId)
	if err != nil {
		return nil, fmt.Errorf("load ldap config: %w", err)
	}
	if ldapConfig == nil {
		// Tenant has no directory auth
		return nil, nil
	}

	entry, err := lp.findEntry(ldapConfig, identity)
	if err != nil {
		slog.Error("LDAP identity search", "tenant", tenantId, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if entry == nil {
		return nil, nil
	}

	ok, err := lp.client.BindAs(ldapConfig, entry.DN, credential)
	if err != nil {
		slog.Error("LDAP user bind", "tenant", tenantId, "dn", entry.DN, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if !ok {
		slog.Debug("LDAP bind rejected", "tenant", tenantId, "identity", identity)
		return nil, nil
	}

	uid := entry.First(ldapConfig.IdAttribute())
	if uid == "" {
		slog.Warn("Directory entry without id attribute",
			"tenant", tenantId, "dn", entry.DN, "attr", ldapConfig.IdAttribute())
		return nil, nil
	}

	// Upsert сериализуется с проходом синхронизации этого арендатора,
	// иначе запись, созданная посреди прохода, попадет под отключение
	// как не наблюдавшаяся в снапшоте
	mu := dao.TenantLock(tenantId)
	mu.Lock()
	user, _, _, err := dao.UpsertLdapUser(lp.db,
		tenantId,
		uid,
		entry.First(ldapConfig.EmailAttribute()),
		entry.First(ldapConfig.NameAttribute()),
		entry.DN)
	mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("upsert ldap user: %w", err)
	}

	// Local disable overrides a successful directory bind
	if !user.Enabled {
		slog.Info("LDAP auth rejected: user disabled locally", "tenant", tenantId, "uid", uid)
		return nil, nil
	}

	return &dto.Principal{
		LdapUserId:   user.ID,
		TenantId:     user.TenantId,
		LdapUid:      user.LdapUid,
		Email:        user.Email,
		Name:         user.Name,
		AccountId:    user.AccountId,
		LinkRequired: user.AccountId == nil,
	}, nil
}

func (lp *LdapProvider) findEntry(ldapConfig *dao.LdapConfig, identity string) (*directory.Entry, error) {
	session, err := lp.client.Connect(ldapConfig)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	filter := directory.IdentityFilter(ldapConfig, identity)
	entries, err := session.Search(ldapConfig.BaseDN, filter, ldapConfig.Attributes())
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}
