// Пакет maintenance содержит движок синхронизации каталогов: периодическую
// сверку снапшота внешнего каталога с локальным кешем пользователей по каждому арендатору.
//
// Основные возможности:
//   - Синхронизация одного арендатора: выборка снапшота, upsert наблюдаемых записей, отключение пропавших.
//   - Обход всех включенных конфигураций с изоляцией ошибок по арендаторам.
//   - Гарантия не более одного одновременного прохода на арендатора.
//   - Проверка подключения к каталогу по конфигурации.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/config"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dao"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/directory"
	"gorm.io/gorm"
)

var (
	// Снапшот каталога превысил настроенный лимит; трактуется как ошибка конфигурации арендатора
	ErrSnapshotTooLarge = errors.New("directory snapshot exceeds configured limit")
	// Проход не уложился в лимит времени
	ErrSyncBudgetExceeded = errors.New("sync wall-clock budget exceeded")
)

// Итог одного прохода синхронизации арендатора.
type SyncResult struct {
	TenantId string `json:"tenant_id"`

	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Disabled int `json:"disabled"`

	// Проход не выполнялся: синхронизация этого арендатора уже шла
	Skipped bool `json:"skipped,omitempty"`

	// Предупреждения по отдельным записям снапшота (проход не прерывают)
	Warnings []string `json:"warnings,omitempty"`

	Err       error  `json:"-"`
	ErrorText string `json:"error,omitempty"`
}

func (r *SyncResult) fail(err error) *SyncResult {
	r.Err = err
	r.ErrorText = err.Error()
	return r
}

type LdapSynchronizer struct {
	db     *gorm.DB
	client directory.Client

	maxSnapshot int
	budget      time.Duration
}

func NewLdapSynchronizer(db *gorm.DB, client directory.Client, cfg *config.Config) *LdapSynchronizer {
	return &LdapSynchronizer{
		db:          db,
		client:      client,
		maxSnapshot: cfg.LdapMaxSnapshot,
		budget:      time.Duration(cfg.LdapSyncBudget) * time.Second,
	}
}

// SyncTenant выполняет один проход синхронизации арендатора.
//
// Отсутствующая или отключенная конфигурация - это no-op с нулевым результатом, не ошибка.
// Если синхронизация арендатора уже выполняется, проход не ставится в очередь -
// возвращается результат со Skipped. Ошибки подключения и поиска прерывают проход
// до каких-либо изменений кеша; отключение пропавших записей выполняется только
// после полностью успешной выборки снапшота.
func (ls *LdapSynchronizer) SyncTenant(ctx context.Context, tenantId string) *SyncResult {
	result := &SyncResult{TenantId: tenantId}

	ldapConfig, err := dao.GetLdapConfig(ls.db, tenantId)
	if err != nil {
		syncRuns.WithLabelValues("error").Inc()
		return result.fail(fmt.Errorf("load ldap config: %w", err))
	}
	if ldapConfig == nil {
		return result
	}

	mu := dao.TenantLock(tenantId)
	if !mu.TryLock() {
		slog.Info("LDAP sync already in progress, skip", "tenant", tenantId)
		result.Skipped = true
		syncRuns.WithLabelValues("skipped").Inc()
		return result
	}
	defer mu.Unlock()

	if err := ls.syncLocked(ctx, ldapConfig, result); err != nil {
		result.fail(err)
	}

	if statusErr := dao.SetLdapSyncStatus(ls.db, ldapConfig, result.Err); statusErr != nil {
		slog.Error("Save LDAP sync status", "tenant", tenantId, "err", statusErr)
	}

	if result.Err != nil {
		slog.Error("LDAP sync failed", "tenant", tenantId, "err", result.Err)
		syncRuns.WithLabelValues("error").Inc()
	} else {
		slog.Info("LDAP sync done",
			"tenant", tenantId,
			"created", result.Created,
			"updated", result.Updated,
			"disabled", result.Disabled,
			"warnings", len(result.Warnings))
		syncRuns.WithLabelValues("ok").Inc()
		syncUsers.WithLabelValues("created").Add(float64(result.Created))
		syncUsers.WithLabelValues("updated").Add(float64(result.Updated))
		syncUsers.WithLabelValues("disabled").Add(float64(result.Disabled))
	}
	return result
}

func (ls *LdapSynchronizer) syncLocked(ctx context.Context, ldapConfig *dao.LdapConfig, result *SyncResult) error {
	if err := ldapConfig.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, ls.budget)
	defer cancel()

	session, err := ls.client.Connect(ldapConfig)
	if err != nil {
		return err
	}
	defer session.Close()

	attributes := ldapConfig.Attributes()
	entries, err := session.Search(ldapConfig.BaseDN, ldapConfig.Filter(), attributes)
	if err != nil {
		return err
	}

	if len(entries) > ls.maxSnapshot {
		return fmt.Errorf("tenant %s: snapshot size %d over limit %d: %w",
			ldapConfig.TenantId, len(entries), ls.maxSnapshot, ErrSnapshotTooLarge)
	}

	// Snapshot is fully materialized past this point
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSyncBudgetExceeded, err)
	}

	idAttr := ldapConfig.IdAttribute()
	observed := make([]string, 0, len(entries))

	return ls.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			uid := entry.First(idAttr)
			if uid == "" {
				warn := fmt.Sprintf("entry %q has no %q attribute, skipped", entry.DN, idAttr)
				slog.Warn("Skip directory entry", "tenant", ldapConfig.TenantId, "dn", entry.DN, "attr", idAttr)
				result.Warnings = append(result.Warnings, warn)
				syncWarnings.Inc()
				continue
			}

			_, created, updated, err := dao.UpsertLdapUser(tx,
				ldapConfig.TenantId,
				uid,
				entry.First(ldapConfig.EmailAttribute()),
				entry.First(ldapConfig.NameAttribute()),
				entry.DN)
			if err != nil {
				return fmt.Errorf("upsert ldap user %s: %w", uid, err)
			}
			if created {
				result.Created++
			}
			if updated {
				result.Updated++
			}
			observed = append(observed, uid)
		}

		disabled, err := dao.DisableUnobservedLdapUsers(tx, ldapConfig.TenantId, observed)
		if err != nil {
			return fmt.Errorf("disable unobserved ldap users: %w", err)
		}
		result.Disabled = int(disabled)
		return nil
	})
}

// SyncAllEnabled обходит все включенные конфигурации LDAP и синхронизирует арендаторов,
// у которых подошел настроенный интервал. Ошибка одного арендатора не останавливает остальных.
func (ls *LdapSynchronizer) SyncAllEnabled(ctx context.Context) []*SyncResult {
	configs, err := dao.GetEnabledLdapConfigs(ls.db)
	if err != nil {
		slog.Error("Load enabled LDAP configs", "err", err)
		return nil
	}

	now := time.Now()
	results := make([]*SyncResult, 0, len(configs))
	for i := range configs {
		if !configs[i].SyncDue(now) {
			continue
		}
		results = append(results, ls.SyncTenant(ctx, configs[i].TenantId))
	}
	return results
}

// SyncJob - цель cron-диспетчера: периодический обход всех включенных конфигураций.
func (ls *LdapSynchronizer) SyncJob() {
	ls.SyncAllEnabled(context.Background())
}

// TestConnection проверяет соединение с каталогом по конфигурации арендатора.
func (ls *LdapSynchronizer) TestConnection(ldapConfig *dao.LdapConfig) (bool, string) {
	if err := ldapConfig.Validate(); err != nil {
		return false, err.Error()
	}
	session, err := ls.client.Connect(ldapConfig)
	if err != nil {
		return false, err.Error()
	}
	session.Close()
	return true, "connection successful"
}
