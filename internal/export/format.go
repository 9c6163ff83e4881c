// Package export turns records into display-ready flat rows and writes them
// to spreadsheet sinks. Formatting lives here so exported values match what
// the console shows.
package export

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"healthops/internal/models"
)

// Formatter renders values the way the console displays them.
type Formatter struct {
	CurrencySymbol  string
	DateFormat      string
	TimestampFormat string
	Location        *time.Location
	// Partners whose partner-adjusted count is added to units sold.
	PartnerAdjustments []string
}

var printer = message.NewPrinter(language.English)

func DefaultFormatter() *Formatter {
	return NewFormatter("₹", "02.01.2006", "02.01.2006 15:04", time.Local, []string{"HUMANA"})
}

func NewFormatter(currency, dateFormat, timestampFormat string, loc *time.Location, partners []string) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{
		CurrencySymbol:     currency,
		DateFormat:         dateFormat,
		TimestampFormat:    timestampFormat,
		Location:           loc,
		PartnerAdjustments: partners,
	}
}

// Money formats an amount with two decimals and thousands separators.
func (f *Formatter) Money(v float64) string {
	return f.CurrencySymbol + printer.Sprintf("%.2f", v)
}

func (f *Formatter) MoneyPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return f.Money(*v)
}

func (f *Formatter) Int(v *int) string {
	if v == nil {
		return ""
	}
	return printer.Sprintf("%d", *v)
}

// Date renders a calendar date; unreadable dates are passed through as stored.
func (f *Formatter) Date(d models.Date) string {
	t, ok := d.In(f.loc())
	if !ok {
		return string(d)
	}
	return t.Format(f.DateFormat)
}

func (f *Formatter) Timestamp(ts models.Timestamp) string {
	t, ok := ts.Time()
	if !ok {
		return string(ts)
	}
	return t.In(f.loc()).Format(f.TimestampFormat)
}

func (f *Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

// AdjustsUnits reports whether client's partner-adjusted count counts as sold.
func (f *Formatter) AdjustsUnits(client string) bool {
	client = strings.TrimSpace(client)
	for _, p := range f.PartnerAdjustments {
		if strings.EqualFold(client, strings.TrimSpace(p)) {
			return true
		}
	}
	return false
}

// UnitsSold is the displayed units sold of c. For adjusted partners the
// partner-adjusted count is added; the stored value is never changed.
func (f *Formatter) UnitsSold(c models.Camp) *int {
	if c.UnitsSold == nil {
		return nil
	}
	n := *c.UnitsSold
	if c.PartnerAdjustedCount != nil && f.AdjustsUnits(c.ClientName) {
		n += *c.PartnerAdjustedCount
	}
	return &n
}
