// Управление конфигурацией сервиса из переменных окружения.
// Содержит структуру Config для хранения параметров и функцию ReadConfig для их загрузки из переменных окружения.
//
// Основные возможности:
//   - Загрузка конфигурации из переменных окружения с использованием тегов struct.
//   - Валидация обязательных переменных.
//   - Маскировка секретных значений (passwords, tokens) в логах.
//   - Значения по умолчанию и ограничение диапазонов для числовых параметров.
package config

import (
	"log/slog"
	"os"
	"reflect"
	"strings"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_URL"`

	ListenAddress string `env:"LISTEN_ADDRESS"`

	// Токен для server-to-server вызовов административного API
	RootToken string `env:"ROOT_API_TOKEN"`

	// Период запуска фоновой синхронизации каталогов в секундах
	SyncPeriod int `env:"LDAP_SYNC_PERIOD"`

	// Таймаут подключения к LDAP-серверу в секундах
	LdapDialTimeout int `env:"LDAP_DIAL_TIMEOUT"`

	// Максимальный размер снапшота каталога одного арендатора
	LdapMaxSnapshot int `env:"LDAP_MAX_SNAPSHOT"`

	// Лимит времени одного прохода синхронизации в секундах
	LdapSyncBudget int `env:"LDAP_SYNC_BUDGET"`
}

// ReadConfig загружает конфигурацию сервиса из переменных окружения и выполняет валидацию.
// Обязательные переменные: DATABASE_URL, ROOT_API_TOKEN. При их отсутствии сервис завершает работу.
// Числовые параметры получают значения по умолчанию, если не заданы или заданы вне допустимого диапазона.
func ReadConfig() *Config {
	config := &Config{}

	envConfig("env", config)

	// Check required envs
	if config.DatabaseDSN == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	if config.RootToken == "" {
		slog.Error("ROOT_API_TOKEN is required")
		os.Exit(1)
	}

	if config.ListenAddress == "" {
		config.ListenAddress = ":8080"
	}

	if config.SyncPeriod < 5 {
		config.SyncPeriod = 30
	}

	if config.LdapDialTimeout <= 0 {
		config.LdapDialTimeout = 10
	}

	if config.LdapMaxSnapshot <= 0 {
		config.LdapMaxSnapshot = 10000
	}

	if config.LdapSyncBudget <= 0 {
		config.LdapSyncBudget = 120
	}

	return config
}

// Присваивает полям в переданной структуре значения переменных. Название переменной для каждого поля лежит в теге этого поля.
func envConfig(key string, s interface{}) {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fName := typeParam.Field(i).Name
		fEnvTag := typeParam.Field(i).Tag.Get(key)

		if !Exist(fEnvTag) {
			continue
		}

		logValue := GetEnv(fEnvTag)
		if logValue == "" {
			continue
		}

		// Secure passwords in log
		if strings.Contains(strings.ToLower(fName), "pass") || strings.Contains(strings.ToLower(fName), "secret") || strings.Contains(strings.ToLower(fName), "token") {
			pass := strings.Split(GetEnv(fEnvTag), "")
			logValue = pass[0]
			for i := 1; i < len(pass)-1; i++ {
				logValue += "*"
			}
		}
		slog.Debug("Load env variable", "name", fEnvTag, "value", logValue)

		switch v.Field(i).Kind() {
		case reflect.String:
			v.FieldByName(fName).SetString(GetEnv(fEnvTag))
		case reflect.Int:
			v.FieldByName(fName).SetInt(int64(GetIntEnv(fEnvTag)))
		case reflect.Bool:
			v.FieldByName(fName).SetBool(GetBoolEnv(fEnvTag))
		}
	}
}
