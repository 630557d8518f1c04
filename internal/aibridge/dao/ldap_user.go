package dao

import (
	"errors"
	"time"

	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dto"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Закешированный пользователь внешнего каталога.
// Запись никогда не удаляется синхронизацией - только отключается,
// чтобы сохранить историю и связь с учётной записью.
type LdapUser struct {
	ID       uuid.UUID `gorm:"column:id;primaryKey;type:text" json:"id"`
	TenantId string    `json:"tenant_id" gorm:"index;uniqueIndex:idx_ldap_users_tenant_uid"`
	LdapUid  string    `json:"ldap_uid" gorm:"uniqueIndex:idx_ldap_users_tenant_uid"`

	Email  string `json:"email"`
	Name   string `json:"name"`
	LdapDN string `json:"-" gorm:"column:ldap_dn"`

	Enabled bool `json:"enabled" gorm:"default:true"`

	// Выставляется только административным отключением; блокирует
	// автоматическое включение записи при повторном появлении в снапшоте.
	ManuallyDisabled bool `json:"manually_disabled"`

	// Слабая ссылка на учётную запись в основной системе
	AccountId *string `json:"account_id,omitempty" gorm:"index" extensions:"x-nullable"`

	LastSyncAt time.Time `json:"last_sync_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Возвращает имя таблицы для данного типа структуры.
func (LdapUser) TableName() string { return "ldap_users" }

func (u *LdapUser) ToLightDTO() *dto.LdapUserLight {
	if u == nil {
		return nil
	}
	return &dto.LdapUserLight{
		ID:               u.ID,
		TenantId:         u.TenantId,
		LdapUid:          u.LdapUid,
		Email:            u.Email,
		Name:             u.Name,
		Enabled:          u.Enabled,
		ManuallyDisabled: u.ManuallyDisabled,
		AccountId:        u.AccountId,
		LastSyncAt:       u.LastSyncAt,
		CreatedAt:        u.CreatedAt,
	}
}

// UpsertLdapUser создает или обновляет запись пользователя каталога по наблюдению из снапшота.
// Поля enabled и account_id при обновлении не трогаются, за одним исключением:
// отключенная запись включается обратно при повторном появлении в каталоге,
// если она не была отключена администратором.
//
// Возвращает:
//   - user: актуальная запись
//   - created: запись создана этим вызовом
//   - updated: денормализованные поля или статус изменились (обновление только last_sync_at не считается)
func UpsertLdapUser(tx *gorm.DB, tenantId, ldapUid, email, name, ldapDN string) (user *LdapUser, created bool, updated bool, err error) {
	user = &LdapUser{}
	err = tx.Where("tenant_id = ? AND ldap_uid = ?", tenantId, ldapUid).First(user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = &LdapUser{
			ID:         GenUUID(),
			TenantId:   tenantId,
			LdapUid:    ldapUid,
			Email:      email,
			Name:       name,
			LdapDN:     ldapDN,
			Enabled:    true,
			LastSyncAt: time.Now(),
		}
		if err := tx.Create(user).Error; err != nil {
			return nil, false, false, err
		}
		return user, true, false, nil
	}
	if err != nil {
		return nil, false, false, err
	}

	changed := user.Email != email || user.Name != name || user.LdapDN != ldapDN
	user.Email = email
	user.Name = name
	user.LdapDN = ldapDN
	user.LastSyncAt = time.Now()

	if !user.Enabled && !user.ManuallyDisabled {
		user.Enabled = true
		changed = true
	}

	if err := tx.Model(user).
		Select("email", "name", "ldap_dn", "enabled", "last_sync_at").
		Updates(user).Error; err != nil {
		return nil, false, false, err
	}
	return user, false, changed, nil
}

// DisableUnobservedLdapUsers отключает включенные записи арендатора, чьи идентификаторы
// не встретились в полном снапшоте каталога. Единственный путь отключения записей синхронизацией.
//
// Возвращает количество отключенных записей.
func DisableUnobservedLdapUsers(tx *gorm.DB, tenantId string, observedUids []string) (int64, error) {
	q := tx.Model(&LdapUser{}).Where("tenant_id = ? AND enabled = ?", tenantId, true)
	if len(observedUids) > 0 {
		q = q.Where("ldap_uid NOT IN ?", observedUids)
	}
	res := q.Updates(map[string]interface{}{"enabled": false, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

// GetLdapUsers возвращает список пользователей каталога арендатора, отсортированный по имени.
func GetLdapUsers(db *gorm.DB, tenantId string, enabledOnly bool) ([]LdapUser, error) {
	var users []LdapUser
	q := db.Where("tenant_id = ?", tenantId)
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	if err := q.Order("name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetLdapUser возвращает запись пользователя каталога по идентификатору в рамках арендатора.
func GetLdapUser(db *gorm.DB, tenantId string, id string) (*LdapUser, error) {
	var user LdapUser
	if err := db.Where("tenant_id = ? AND id = ?", tenantId, id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetLdapUserStatus включает или отключает запись пользователя каталога администратором.
// Затрагивает только локальный флаг - записи в каталог не выполняются.
// Отключение помечает запись как отключенную вручную, чтобы синхронизация её не включила обратно.
func SetLdapUserStatus(db *gorm.DB, tenantId string, id string, enabled bool) (*LdapUser, error) {
	user, err := GetLdapUser(db, tenantId, id)
	if err != nil {
		return nil, err
	}

	user.Enabled = enabled
	user.ManuallyDisabled = !enabled
	if err := db.Model(user).
		Select("enabled", "manually_disabled").
		Updates(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// LinkLdapUserAccount привязывает пользователя каталога к учётной записи основной системы.
func LinkLdapUserAccount(db *gorm.DB, user *LdapUser, accountId string) error {
	user.AccountId = &accountId
	return db.Model(user).Select("account_id").Updates(user).Error
}

// GetLdapSyncStats возвращает статистику синхронизации арендатора.
func GetLdapSyncStats(db *gorm.DB, config *LdapConfig) (*dto.LdapSyncStats, error) {
	stats := &dto.LdapSyncStats{
		LastSyncAt:   config.LastSyncAt,
		LastStatus:   config.LastSyncStatus,
		LastError:    config.LastSyncError,
		SyncInterval: config.SyncInterval,
	}

	if err := db.Model(&LdapUser{}).
		Where("tenant_id = ?", config.TenantId).
		Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&LdapUser{}).
		Where("tenant_id = ? AND enabled = ?", config.TenantId, true).
		Count(&stats.EnabledUsers).Error; err != nil {
		return nil, err
	}
	stats.DisabledUsers = stats.TotalUsers - stats.EnabledUsers
	return stats, nil
}
