// rate — fixed-window ограничители частоты запросов.
// Политика (лимит/окно) отделена от бэкенда счётчиков: по умолчанию
// память процесса, при наличии общего Redis — скрипт INCR+PEXPIRE.
package rate

import (
	"context"
	"time"
)

// Limiter решает, пропускать ли событие с данным ключом.
// Возвращает признак допуска и, при отказе, время до сброса окна
// (для заголовка Retry-After).
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, time.Duration, error)
}
