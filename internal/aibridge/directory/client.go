// Пакет directory оборачивает подключение к внешнему серверу каталога (LDAP/AD).
//
// Основные возможности:
//   - Установка ограниченного по времени соединения с bind от имени сервисной учётной записи.
//   - Поиск записей каталога по фильтру с постраничной выборкой.
//   - Проверка учётных данных пользователя отдельным bind-соединением.
//
// Интерфейсы Client и Session позволяют подменять каталог фейковой
// реализацией в тестах, не поднимая LDAP-сервер.
package directory

import (
	"errors"

	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dao"
)

var (
	// Каталог недоступен или bind сервисной учётной записи отклонен
	ErrConnection = errors.New("directory connection failed")
	// Некорректный фильтр или ошибка поиска на стороне сервера
	ErrSearch = errors.New("directory search failed")
)

// Одна запись каталога: DN и атрибуты со значениями.
type Entry struct {
	DN    string
	Attrs map[string][]string
}

// First возвращает первое значение атрибута или пустую строку.
func (e Entry) First(name string) string {
	if vals := e.Attrs[name]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Session - связанное соединение с каталогом от имени сервисной учётной записи.
type Session interface {
	// Search выполняет поиск по фильтру и возвращает материализованный список записей.
	Search(baseDN, filter string, attributes []string) ([]Entry, error)
	// Bind выполняет повторный bind на этом соединении.
	Bind(dn, credential string) error
	// Close закрывает соединение. Повторные вызовы безопасны.
	Close() error
}

type Client interface {
	// Connect устанавливает связанное соединение по конфигурации арендатора.
	Connect(config *dao.LdapConfig) (Session, error)
	// BindAs проверяет учётные данные пользователя на отдельном соединении.
	// Неверные учётные данные - это (false, nil), ошибка обозначает недоступность каталога.
	BindAs(config *dao.LdapConfig, dn, credential string) (bool, error)
}
