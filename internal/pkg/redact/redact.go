// redact предоставляет утилиты безопасного вывода чувствительных данных
// в логи: e-mail маскируется, токены заменяются коротким отпечатком,
// по которому можно сопоставить записи, не раскрывая сам секрет.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email маскирует e-mail для логирования.
//
// Правила:
//   - строка должна содержать ровно один '@', иначе возвращается "***";
//   - локальная часть сокращается до первых двух рун + "***";
//   - если локальная часть короче трёх рун — "***@<domain>".
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token возвращает отпечаток токена вида "tok:1a2b3c4d" (первые 4 байта sha256).
// Пустой токен даёт "tok:-".
func Token(token string) string {
	if token == "" {
		return "tok:-"
	}

	sum := sha256.Sum256([]byte(token))
	return "tok:" + hex.EncodeToString(sum[:4])
}
