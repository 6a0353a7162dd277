package translation

import (
	"github.com/leonelquinteros/gotext"
)

// GetLanguage reports the active notification language, defaulting to
// English when none is configured.
func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

// Translate localizes an alert title or notification string.
func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
