package logger

import (
	"regexp"
)

var (
	passwordPattern = regexp.MustCompile(`(?i)(password\s*=\s*['"])([^'"]+)(['"])`)
	phonePattern    = regexp.MustCompile(`(\d{3})\d{4}(\d{4})`)
	idCardPattern   = regexp.MustCompile(`(\d{6})\d{8}(\d{4})`)
)

// sanitizeSQL masks sensitive values (passwords, phone numbers, id card
// numbers) before the SQL text reaches the logs.
func sanitizeSQL(sql string) string {
	sql = passwordPattern.ReplaceAllString(sql, `$1***$3`)
	sql = phonePattern.ReplaceAllString(sql, `$1****$2`)
	sql = idCardPattern.ReplaceAllString(sql, `$1********$2`)
	return sql
}
