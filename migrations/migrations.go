// Package migrations embeds the schema files applied by `paywall migrate`.
package migrations

import (
	"embed"
	"strings"
)

//go:embed *.sql
var FS embed.FS

const (
	MySQL      = "001_init.sql"
	ClickHouse = "002_clickhouse.sql"
)

// Statements splits a schema file on ";" for drivers without multi-statement
// support. Blank pieces and "--" comment lines are dropped.
func Statements(src string) []string {
	var out []string
	for _, part := range strings.Split(src, ";") {
		var lines []string
		for _, l := range strings.Split(part, "\n") {
			if strings.HasPrefix(strings.TrimSpace(l), "--") {
				continue
			}
			lines = append(lines, l)
		}
		if stmt := strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
