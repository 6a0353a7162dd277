package helpers

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func EscapeMarkdownV2(text string) string {
	charactersToEscape := []string{".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

func FormatPriceUS(price float64, escapeMarkdown bool) string {
	decimals := 6

	if price >= 1000 {
		decimals = 0
	} else if price > 1.2 {
		decimals = 2
	} else if price < 0.00001 {
		decimals = 8
	}

	thousandSeparator := ","

	p := message.NewPrinter(language.English)
	withCommaThousandSep := p.Sprintf("%.*f", decimals, price)
	formatted := strings.ReplaceAll(withCommaThousandSep, ",", thousandSeparator)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatHashrate renders a TH/s value the way the dashboard does.
func FormatHashrate(terahash float64) string {
	if terahash >= 1000 {
		return fmt.Sprintf("%.2f PH/s", terahash/1000)
	}
	return fmt.Sprintf("%.1f TH/s", terahash)
}

// TimeAgo renders a unix-millisecond timestamp as a relative time.
func TimeAgo(unixMillis int64) string {
	if unixMillis == 0 {
		return "never"
	}
	return humanize.Time(time.UnixMilli(unixMillis))
}
