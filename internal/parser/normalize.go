package parser

import (
	"strings"

	"github.com/atikulmunna/lognorm/internal/model"
)

// normalize renames severity to level when level is absent, then
// lowercases a string level. Non-string levels are left as decoded.
func normalize(rec model.Record) model.Record {
	if _, ok := rec[model.KeyLevel]; !ok {
		if sev, ok := rec[model.KeySeverity]; ok {
			rec[model.KeyLevel] = sev
			delete(rec, model.KeySeverity)
		}
	}
	if lvl, ok := rec[model.KeyLevel].(string); ok {
		rec[model.KeyLevel] = strings.ToLower(lvl)
	}
	return rec
}
