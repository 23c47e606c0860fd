package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyStripper = strings.NewReplacer(
		"$", "", "€", "", "£", "", "¥", "",
		"USD", "", "usd", "",
		",", "", " ", "", "\t", "", " ", "",
	)
	leadingInt = regexp.MustCompile(`^-?\d+`)
)

// Currency parses a monetary amount. Symbols, thousands separators and
// whitespace are stripped first; accounting negatives "(12.50)" are honored.
func Currency(raw string) Result[float64] {
	res := Result[float64]{OriginalValue: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return res
	}

	cleaned := currencyStripper.Replace(trimmed)
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "("), ")")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		res.Issues = append(res.Issues, "unparseable amount "+quote(raw))
		return res
	}
	if negative {
		v = -v
	}
	res.Value = v
	res.WasNormalized = cleaned != trimmed
	return res
}

// Count parses an integer count such as nights or points. Trailing units
// ("7 Nights", "12,500 pts") are ignored.
func Count(raw string) Result[int] {
	res := Result[int]{OriginalValue: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return res
	}

	cleaned := strings.NewReplacer(",", "", " ", "", "\t", "").Replace(trimmed)
	digits := leadingInt.FindString(cleaned)
	if digits == "" {
		res.Issues = append(res.Issues, "unparseable count "+quote(raw))
		return res
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		res.Issues = append(res.Issues, "unparseable count "+quote(raw))
		return res
	}
	res.Value = n
	res.WasNormalized = digits != trimmed
	return res
}
