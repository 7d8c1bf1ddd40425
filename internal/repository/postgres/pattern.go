// Package postgres holds helpers shared by the GORM repositories.
package postgres

import "strings"

// ContainsClause matches column against a ContainsPattern argument.
const ContainsClause = " ILIKE ? ESCAPE '\\'"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns free text into an ILIKE pattern that matches it as a
// substring. LIKE wildcards in text are matched literally.
func ContainsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}
