package ocr

import (
	"strings"
	"time"
)

// Accepted birth date layouts, tried in order. Month-first numeric forms win
// over day-first ones when both parse.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"20060102",
}

// NormalizeDate returns the date as YYYY-MM-DD, or nil when it is absent or
// cannot be parsed.
func NormalizeDate(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" || isNullWord(s) {
		return nil
	}
	s = strings.Join(strings.Fields(s), " ")
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < 1800 || t.After(time.Now().AddDate(0, 0, 1)) {
			return nil
		}
		out := t.Format("2006-01-02")
		return &out
	}
	return nil
}
