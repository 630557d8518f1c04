package dao

import "sync"

// Таблица блокировок арендаторов: tenant_id -> *sync.Mutex.
// Сериализует изменения кеша пользователей арендатора: проход синхронизации
// держит мьютекс на все время прохода, upsert при аутентификации берет его
// на время записи. Мьютексы создаются по требованию и живут до конца процесса.
var tenantLocks sync.Map

// TenantLock возвращает мьютекс арендатора.
func TenantLock(tenantId string) *sync.Mutex {
	mu, _ := tenantLocks.LoadOrStore(tenantId, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
