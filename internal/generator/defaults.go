package generator

import (
	"regexp"
	"strings"

	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
)

// knownDefaults maps upper-cased source default expressions to PostgreSQL.
var knownDefaults = map[string]string{
	"CURRENT USER":             "current_user",
	"CURRENT TIMESTAMP":        "current_timestamp",
	"TIMESTAMP":                "current_timestamp",
	"CURRENT SERVER TIMESTAMP": "current_timestamp",
	"CURRENT DATE":             "current_date",
	`"NOW"()`:                  "now()",

	`"DATEFORMAT"("NOW"(),'YYYY.MM.DD')`:              "to_char(current_timestamp, 'YYYY.MM.dd')",
	`"DATEFORMAT"("NOW"(),'YYYY.MM.DD HH:NN:SS')`:     "to_char(current_timestamp, 'YYYY.MM.dd HH24:MI:SS')",
	`"DATEFORMAT"("NOW"(),'YYYY-MM-DD HH:NN:SS')`:     "to_char(current_timestamp, 'YYYY-MM-dd HH24:MI:SS')",
	`"DATEFORMAT"("NOW"(),'YYYY.MM.DD HH:NN:SS.SSS')`: "to_char(current_timestamp, 'YYYY.MM.dd HH24:MI:SS.MS')",
	`"DATEFORMAT"("NOW"(),'YYYY-MM-DD HH:NN:SS.SSS')`: "to_char(current_timestamp, 'YYYY-MM-dd HH24:MI:SS.MS')",
	`"DATEFORMAT"("NOW"(),'HH:NN:SS')`:                "to_char(current_timestamp, 'HH24:MI:SS')",
}

var literalDefault = regexp.MustCompile(`^(?:'(?:[^']|'')*'|[-+]?\d+(?:\.\d+)?|NULL)$`)

// translateDefault maps a source default expression. The second result is false
// when the text was passed through without a known translation.
func translateDefault(column *schema.Column, raw string) (string, bool) {
	value := strings.TrimSpace(raw)

	if v, ok := knownDefaults[strings.ToUpper(value)]; ok {
		if v == "current_user" && column.DataType == schema.Integer {
			return "CAST(current_user as INTEGER)", true
		}
		return v, true
	}

	if column.DataType == schema.Bit {
		switch value {
		case "1", "'1'":
			return "TRUE", true
		case "0", "'0'":
			return "FALSE", true
		}
	}

	if literalDefault.MatchString(strings.ToUpper(value)) {
		return value, true
	}

	return value, false
}
