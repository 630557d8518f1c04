// Package authprovider определяет интерфейс проверки учётных данных через внешние каталоги.
//
// Позволяет проверять пароль пользователя через bind к LDAP-серверу арендатора
// вместо локальной БД. Используется потоком логина как запасной механизм после
// основной аутентификации.
//
// Реализации:
//   - LdapProvider (ldap.go) — аутентификация через LDAP/AD по схеме search-then-bind
//
// При успешной LDAP-аутентификации запись пользователя каталога автоматически
// создаётся в локальном кеше, если её там ещё нет.
package authprovider

import (
	"context"

	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dto"
)

type AuthProvider interface {
	// Authenticate проверяет учётные данные пользователя арендатора.
	//
	// (nil, nil) означает отказ по ожидаемой причине: у арендатора нет
	// включенной конфигурации каталога, личность не найдена, пароль неверен
	// или запись отключена локально. Ошибка возвращается только при
	// недоступности каталога.
	Authenticate(ctx context.Context, tenantId, identity, credential string) (*dto.Principal, error)
}
