package dao

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	DefaultUserFilter = "(objectClass=person)"

	// Минимально допустимый интервал синхронизации, секунды
	MinSyncInterval = 10
)

var configValidator = validator.New()

// Конфигурация не проходит валидацию; проход синхронизации с такой
// конфигурацией прерывается до обращения к каталогу
var ErrConfigInvalid = errors.New("invalid ldap configuration")

// Конфигурация подключения арендатора к внешнему каталогу.
// Изменяется только внешним конфигурационным API; сервис синхронизации читает её как есть.
type LdapConfig struct {
	ID       uuid.UUID `gorm:"column:id;primaryKey;type:text" json:"id"`
	TenantId string    `json:"tenant_id" gorm:"uniqueIndex"`

	Enabled bool `json:"enabled" gorm:"default:false"`

	ServerURL    string `json:"server_url" validate:"required,url"`
	BindDN       string `json:"bind_dn" validate:"required"`
	BindPassword string `json:"-" validate:"required"`
	BaseDN       string `json:"base_dn" validate:"required"`

	UserFilter         string `json:"user_filter"`
	UserIdAttribute    string `json:"user_id_attribute" gorm:"default:'uid'"`
	UserEmailAttribute string `json:"user_email_attribute" gorm:"default:'mail'"`
	UserNameAttribute  string `json:"user_name_attribute" gorm:"default:'cn'"`

	SyncInterval int `json:"sync_interval" gorm:"default:30" validate:"min=10"`

	LastSyncAt     *time.Time `json:"last_sync_at" extensions:"x-nullable"`
	LastSyncStatus string     `json:"last_sync_status"`
	LastSyncError  string     `json:"last_sync_error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Возвращает имя таблицы для данного типа структуры.
func (LdapConfig) TableName() string { return "ldap_configs" }

// Validate проверяет корректность конфигурации перед использованием.
func (lc *LdapConfig) Validate() error {
	if err := configValidator.Struct(lc); err != nil {
		return fmt.Errorf("%w for tenant %s: %v", ErrConfigInvalid, lc.TenantId, err)
	}
	return nil
}

// Filter возвращает фильтр выборки пользователей, подставляя значение по умолчанию.
func (lc *LdapConfig) Filter() string {
	if lc.UserFilter == "" {
		return DefaultUserFilter
	}
	return lc.UserFilter
}

func (lc *LdapConfig) IdAttribute() string {
	if lc.UserIdAttribute == "" {
		return "uid"
	}
	return lc.UserIdAttribute
}

func (lc *LdapConfig) EmailAttribute() string {
	if lc.UserEmailAttribute == "" {
		return "mail"
	}
	return lc.UserEmailAttribute
}

func (lc *LdapConfig) NameAttribute() string {
	if lc.UserNameAttribute == "" {
		return "cn"
	}
	return lc.UserNameAttribute
}

// Attributes возвращает список атрибутов каталога, запрашиваемых при поиске.
func (lc *LdapConfig) Attributes() []string {
	return []string{lc.IdAttribute(), lc.EmailAttribute(), lc.NameAttribute()}
}

// GetLdapConfig возвращает включенную конфигурацию LDAP арендатора.
// Если конфигурации нет или она отключена, возвращает (nil, nil).
func GetLdapConfig(db *gorm.DB, tenantId string) (*LdapConfig, error) {
	var config LdapConfig
	if err := db.Where("tenant_id = ? AND enabled = ?", tenantId, true).First(&config).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// GetLdapConfigAny возвращает конфигурацию LDAP арендатора независимо от флага enabled.
func GetLdapConfigAny(db *gorm.DB, tenantId string) (*LdapConfig, error) {
	var config LdapConfig
	if err := db.Where("tenant_id = ?", tenantId).First(&config).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

// GetEnabledLdapConfigs возвращает все включенные конфигурации LDAP.
func GetEnabledLdapConfigs(db *gorm.DB) ([]LdapConfig, error) {
	var configs []LdapConfig
	if err := db.Where("enabled = ?", true).Order("tenant_id").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// SyncDue возвращает true, если с момента последней успешной синхронизации прошло не меньше настроенного интервала.
func (lc *LdapConfig) SyncDue(now time.Time) bool {
	if lc.LastSyncAt == nil {
		return true
	}
	interval := lc.SyncInterval
	if interval < MinSyncInterval {
		interval = MinSyncInterval
	}
	return now.Sub(*lc.LastSyncAt) >= time.Duration(interval)*time.Second
}

// SetLdapSyncStatus сохраняет результат последнего прохода синхронизации в конфигурации арендатора.
// Время последней синхронизации обновляется только при успехе.
func SetLdapSyncStatus(db *gorm.DB, config *LdapConfig, syncErr error) error {
	updates := map[string]interface{}{
		"last_sync_status": "ok",
		"last_sync_error":  "",
	}
	if syncErr != nil {
		updates["last_sync_status"] = "error"
		updates["last_sync_error"] = syncErr.Error()
	} else {
		now := time.Now()
		updates["last_sync_at"] = &now
		config.LastSyncAt = &now
	}
	return db.Model(config).Updates(updates).Error
}
