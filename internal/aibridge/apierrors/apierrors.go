// Пакет содержит определения ошибок, используемых сервисом синхронизации каталогов для обработки ситуаций, возникающих при работе с базой данных, LDAP-серверами и административным API.  Каждая ошибка имеет код, статус HTTP и описание, что позволяет удобно обрабатывать исключения и предоставлять информативные сообщения вызывающей стороне.
//
// Основные возможности:
//   - Определение типов ошибок, связанных с аутентификацией, конфигурацией арендаторов, синхронизацией и управлением пользователями каталога.
//   - Предоставление кодов ошибок, соответствующих кодам HTTP статусов.
//   - Функция для форматирования сообщений об ошибках с использованием аргументов.
package apierrors

import (
	"fmt"
	"net/http"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
	RuErr      string `json:"ru_error,omitempty"`
}

func (e DefinedError) Error() string {
	return e.Err
}

// WithFormattedMessage возвращает копию ошибки с сообщениями, отформатированными через fmt.Sprintf.
func (e DefinedError) WithFormattedMessage(args ...interface{}) DefinedError {
	e.Err = fmt.Sprintf(e.Err, args...)
	e.RuErr = fmt.Sprintf(e.RuErr, args...)
	return e
}

var (
	// 1*** - auth errors
	ErrFailedLogin              = DefinedError{Code: 1001, StatusCode: http.StatusUnauthorized, Err: "invalid credentials", RuErr: "Неправильный логин или пароль"}
	ErrLoginCredentialsRequired = DefinedError{Code: 1002, StatusCode: http.StatusUnauthorized, Err: "both identity and credential are required", RuErr: "Поля логин и пароль не могут быть пустыми"}
	ErrDirectoryAuthUnavailable = DefinedError{Code: 1003, StatusCode: http.StatusServiceUnavailable, Err: "directory authentication unavailable", RuErr: "Сервер каталога недоступен"}
	ErrNotAuthorized            = DefinedError{Code: 1004, StatusCode: http.StatusUnauthorized, Err: "authorization required", RuErr: "Требуется авторизация"}

	// 2*** - tenant config errors
	ErrLdapConfigNotFound = DefinedError{Code: 2001, StatusCode: http.StatusNotFound, Err: "ldap configuration not found", RuErr: "Конфигурация LDAP не найдена"}
	ErrLdapConfigInvalid  = DefinedError{Code: 2002, StatusCode: http.StatusBadRequest, Err: "ldap configuration is invalid: %s", RuErr: "Конфигурация LDAP некорректна: %s"}

	// 3*** - sync errors
	ErrSyncInProgress = DefinedError{Code: 3001, StatusCode: http.StatusConflict, Err: "sync already in progress", RuErr: "Синхронизация уже выполняется"}
	ErrSyncFailed     = DefinedError{Code: 3002, StatusCode: http.StatusBadGateway, Err: "sync failed: %s", RuErr: "Синхронизация завершилась ошибкой: %s"}

	// 4*** - directory user errors
	ErrLdapUserNotFound = DefinedError{Code: 4001, StatusCode: http.StatusNotFound, Err: "directory user not found", RuErr: "Пользователь каталога не найден"}

	// 5*** - common errors
	ErrGeneric = DefinedError{Code: 5001, StatusCode: http.StatusBadRequest, Err: "something went wrong", RuErr: "Произошла ошибка"}
)
