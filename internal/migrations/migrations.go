// migrations встраивает SQL-миграции сервиса, чтобы бинарник
// применял их сам при старте (goose.SetBaseFS).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
