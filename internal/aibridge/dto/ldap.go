// Содержит структуры данных (DTO) для представления пользователей каталога, результатов аутентификации и статистики синхронизации.
// Используется для обмена данными между слоями сервиса и внешними потребителями API.
//
// Основные возможности:
//   - Представление закешированных пользователей каталога (с nullable-ссылкой на учётную запись).
//   - Передача принципала в основную систему учётных записей после успешного bind.
//   - Статистика синхронизации по арендатору.
package dto

import (
	"time"

	"github.com/gofrs/uuid"
)

// Principal - аутентифицированная через каталог личность, передаваемая основной системе учётных записей.
// AccountId заполнен, если пользователь каталога уже связан с учётной записью.
// LinkRequired сигнализирует вызывающей стороне о необходимости создать или привязать учётную запись.
type Principal struct {
	LdapUserId uuid.UUID `json:"ldap_user_id"`
	TenantId   string    `json:"tenant_id"`
	LdapUid    string    `json:"ldap_uid"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`

	AccountId    *string `json:"account_id,omitempty" extensions:"x-nullable"`
	LinkRequired bool    `json:"link_required"`
}

type LdapUserLight struct {
	ID       uuid.UUID `json:"id"`
	TenantId string    `json:"tenant_id"`
	LdapUid  string    `json:"ldap_uid"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`

	Enabled          bool `json:"enabled"`
	ManuallyDisabled bool `json:"manually_disabled"`

	AccountId  *string   `json:"account_id,omitempty" extensions:"x-nullable"`
	LastSyncAt time.Time `json:"last_sync_at"`
	CreatedAt  time.Time `json:"created_at"`
}

type LdapSyncStats struct {
	TotalUsers    int64      `json:"total_users"`
	EnabledUsers  int64      `json:"enabled_users"`
	DisabledUsers int64      `json:"disabled_users"`
	LastSyncAt    *time.Time `json:"last_sync_at" extensions:"x-nullable"`
	LastStatus    string     `json:"last_sync_status"`
	LastError     string     `json:"last_sync_error,omitempty"`
	SyncInterval  int        `json:"sync_interval"`
}
