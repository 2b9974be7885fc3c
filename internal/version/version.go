// Package version хранит сведения о сборке сервиса заказов маркетплейса.
// Значения заполняются при сборке релиза:
//
//	go build -ldflags "-X .../internal/version.version=v1.2.3 ..."
package version

import "fmt"

var (
	version = "0.0.0-dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// String форматирует сведения о сборке одной строкой для логов.
func String() string {
	return fmt.Sprintf("marketplace %s (commit %s, built %s)", version, commit, date)
}
