// DAO (Data Access Object) - предоставляет интерфейс для взаимодействия с базой данных сервиса.  Содержит модели конфигураций LDAP арендаторов и закешированных пользователей каталога, а также функции доступа к ним.
//
// Основные возможности:
//   - Чтение конфигураций LDAP по арендаторам.
//   - Upsert закешированных пользователей каталога.
//   - Управление статусом пользователей (включение/отключение).
//   - Статистика синхронизации по арендатору.
package dao

import (
	"github.com/gofrs/uuid"
)

// GenID генерирует уникальный идентификатор в формате UUID.
// Не принимает параметров и возвращает строку, представляющую собой UUID.
func GenID() string {
	u2, _ := uuid.NewV4()
	return u2.String()
}

// GenUUID генерирует уникальный идентификатор в формате UUID. Не принимает параметров и возвращает UUID.
//
// Возвращает:
//   - uuid.UUID: UUID, представляющий собой уникальный идентификатор.
func GenUUID() uuid.UUID {
	u2, _ := uuid.NewV4()
	return u2
}
