package reference

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/sig-0/p2prates/ingest"
	"github.com/sig-0/p2prates/storage"
	"github.com/sig-0/p2prates/storage/types"
)

const (
	DefaultBCVURL = "https://www.bcv.org.ve/"

	defaultTimeout = 30 * time.Second
	rateDecimals   = 4
)

var (
	errInvalidRate = errors.New("invalid rate")
	errNoRates     = errors.New("no rates found")
)

// bcvSections maps the BCV website currency section IDs to currency codes
var bcvSections = []struct {
	id       string
	currency string
}{
	{"dolar", "USD"},
	{"euro", "EUR"},
	{"yuan", "CNY"},
	{"lira", "TRY"},
	{"rublo", "RUB"},
}

// Rate is a single official VES rate
type Rate struct {
	AsOf     time.Time
	Currency string
	Value    decimal.Decimal
}

// RateName returns the name of the official rate of the currency
func RateName(currency string) string {
	return "Tasa BCV " + currency
}

// BCV is the BCV website scraper
type BCV struct {
	storage storage.Storage
	client  *http.Client
	logger  *slog.Logger
	url     string
}

// NewBCV creates a new instance of the BCV website scraper
func NewBCV(s storage.Storage, opts ...Option) *BCV {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // The BCV certificate chain is incomplete
	}

	b := &BCV{
		storage: s,
		client: &http.Client{
			Timeout:   defaultTimeout,
			Transport: tr,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		url:    DefaultBCVURL,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Job returns the daily scraping job
func (b *BCV) Job() ingest.Job {
	return ingest.NewJob("bcv", ingest.Every(24*time.Hour), b.Run)
}

// Run fetches the official rates and appends them as named rates
func (b *BCV) Run(ctx context.Context) error {
	rates, err := b.Fetch(ctx)
	if err != nil {
		return err
	}

	for _, rate := range rates {
		name := RateName(rate.Currency)

		if err := b.storage.SaveRate(ctx, &types.NamedRate{
			AsOf:  rate.AsOf,
			Name:  name,
			Value: rate.Value,
		}); err != nil {
			return fmt.Errorf("unable to save rate %s: %w", name, err)
		}

		b.logger.Info(
			"saved official rate",
			"name", name,
			"rate", rate.Value.String(),
			"effective_date", rate.AsOf.String(),
		)
	}

	return nil
}

// Fetch scrapes the official rates off the BCV website
func (b *BCV) Fetch(ctx context.Context) ([]Rate, error) {
	// Prepare the request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create new GET request: %w", err)
	}

	// Execute the request
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	// Construct document for parsing
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to construct query doc: %w", err)
	}

	asOf := time.Now().In(types.Zone)

	if effectiveDate := parseEffectiveDate(doc); effectiveDate != nil {
		asOf = effectiveDate.In(types.Zone)
	}

	rates := make([]Rate, 0, len(bcvSections))

	for _, section := range bcvSections {
		value, err := sectionRate(doc, section.id)
		if err != nil {
			b.logger.Warn(
				"unable to parse official rate",
				"section", section.id,
				"err", err,
			)

			continue
		}

		rates = append(rates, Rate{
			AsOf:     asOf,
			Currency: section.currency,
			Value:    value,
		})
	}

	if len(rates) == 0 {
		return nil, errNoRates
	}

	return rates, nil
}

// sectionRate extracts the rate of a single currency section
func sectionRate(doc *goquery.Document, id string) (decimal.Decimal, error) {
	sel := doc.Find("#" + id)

	if sel.Length() == 0 {
		return decimal.Zero, fmt.Errorf("missing element #%s", id)
	}

	txt := sel.Find(".col-sm-6.col-xs-6.centrado").First().Text()
	if strings.TrimSpace(txt) == "" {
		txt = sel.Find(".centrado").First().Text()
	}

	v, err := parseBCVNumber(txt)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse rate value for %s: %w", id, err)
	}

	return v.Round(rateDecimals), nil
}

// parseBCVNumber parses the rate number from the BCV website
func parseBCVNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errInvalidRate
	}

	// BCV uses comma as decimal separator and dots for thousands:
	// "1.234,56" -> "1234.56"
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse rate %q: %w", s, err)
	}

	if !v.IsPositive() {
		return decimal.Zero, errInvalidRate
	}

	return v, nil
}

// parseEffectiveDate parses the "Fecha Valor" date on the BCV website
func parseEffectiveDate(doc *goquery.Document) *time.Time {
	// Best source: the machine-readable datetime
	sel := doc.Find(`span.date-display-single[property="dc:date"]`).First()
	if sel.Length() == 0 {
		sel = doc.Find("span.date-display-single").First()
	}

	if sel.Length() == 0 {
		return nil
	}

	if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
		// Example: "2026-01-13T00:00:00-04:00"
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(content)); err == nil {
			return &t
		}
	}

	// Fallback: parse the rendered Spanish text
	t, err := parseBCVDate(sel.Text())
	if err != nil {
		return nil
	}

	return &t
}

var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

// parseBCVDate parses a rendered date, e.g. "Martes, 13 Enero 2026".
// The day of week is ignored
func parseBCVDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ","); i != -1 {
		s = strings.TrimSpace(s[i+1:])
	}

	parts := strings.Fields(s)
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("date format is invalid %q", s)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse effective date day: %w", err)
	}

	month, ok := spanishMonths[strings.ToLower(parts[1])]
	if !ok {
		return time.Time{}, fmt.Errorf("month is invalid %q", parts[1])
	}

	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse effective date year: %w", err)
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}
