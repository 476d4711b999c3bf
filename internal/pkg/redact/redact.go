// redact скрывает чувствительные значения перед записью в логи.
// Сырые пароли, токены и полные email-адреса в логи не попадают.
package redact

import "strings"

// Email маскирует локальную часть адреса: "ivan@example.com" -> "iv***@example.com".
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := parts[0], parts[1]
	if runes := []rune(local); len(runes) > 2 {
		local = string(runes[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
