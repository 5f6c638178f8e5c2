package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/sig-0/p2prates/engine"
	"github.com/sig-0/p2prates/quote"
)

const (
	commandStart   = "start"
	commandHelp    = "ayuda"
	commandRate    = "tasa"
	commandConvert = "convertir"
	commandUSDT    = "usdt"

	timeLayout = "02/01/2006 15:04"
)

const helpMessage = `Comandos disponibles:
/tasa <origen> <destino> [full|público|mayorista]
/convertir <monto> <origen> <destino> [full|público|mayorista]
/usdt <país> <monto>`

const (
	msgUnknownCommand  = "Comando desconocido. Usa /ayuda para ver los comandos disponibles"
	msgUnknownCountry  = "País desconocido: %s"
	msgUnknownTier     = "Tasa desconocida: %s"
	msgInvalidAmount   = "Monto inválido: %s"
	msgRateUnavailable = "La tasa no está disponible en este momento"
	msgInternalError   = "No se pudo obtener la tasa, intenta de nuevo más tarde"
)

var errInvalidArguments = errors.New("invalid arguments")

// Quoter is the rate lookup surface the bot answers from
type Quoter interface {
	PairQuote(ctx context.Context, origin, destination string, tier engine.Tier) (*quote.Quote, error)
	Convert(
		ctx context.Context,
		origin, destination string,
		tier engine.Tier,
		amount decimal.Decimal,
	) (*quote.Conversion, error)
	ToUSDT(ctx context.Context, country string, amount decimal.Decimal) (*quote.Conversion, error)
}

// Responder builds the plain text replies of the bot commands
type Responder struct {
	quotes    Quoter
	countries map[string]string // lowercase -> market label
	location  *time.Location
}

// NewResponder creates a new command responder.
// Country arguments are resolved case-insensitively against the market labels
func NewResponder(quotes Quoter, tables *engine.Tables, location *time.Location) *Responder {
	if tables == nil {
		tables = engine.DefaultTables()
	}

	if location == nil {
		location = time.UTC
	}

	labels := lo.Uniq(lo.Map(tables.Markets, func(m engine.Market, _ int) string {
		return m.Label
	}))

	return &Responder{
		quotes: quotes,
		countries: lo.SliceToMap(labels, func(label string) (string, string) {
			return strings.ToLower(label), label
		}),
		location: location,
	}
}

// Reply answers a single command message, e.g. "/tasa chile venezuela público"
func (r *Responder) Reply(ctx context.Context, text string) string {
	command, args := parseCommand(text)

	switch command {
	case commandStart, commandHelp:
		return helpMessage
	case commandRate:
		return r.rate(ctx, args)
	case commandConvert:
		return r.convert(ctx, args)
	case commandUSDT:
		return r.usdt(ctx, args)
	default:
		return msgUnknownCommand
	}
}

func (r *Responder) rate(ctx context.Context, args []string) string {
	if len(args) < 2 || len(args) > 3 {
		return helpMessage
	}

	origin, destination, tier, reply := r.resolvePair(args[0], args[1], args[2:])
	if reply != "" {
		return reply
	}

	q, err := r.quotes.PairQuote(ctx, origin, destination, tier)
	if err != nil {
		return errorReply(err)
	}

	return fmt.Sprintf(
		"%s: %s\nActualizada: %s",
		q.Name,
		q.Rate.String(),
		q.AsOf.In(r.location).Format(timeLayout),
	)
}

func (r *Responder) convert(ctx context.Context, args []string) string {
	if len(args) < 3 || len(args) > 4 {
		return helpMessage
	}

	amount, err := parseAmount(args[0])
	if err != nil {
		return fmt.Sprintf(msgInvalidAmount, args[0])
	}

	origin, destination, tier, reply := r.resolvePair(args[1], args[2], args[3:])
	if reply != "" {
		return reply
	}

	c, err := r.quotes.Convert(ctx, origin, destination, tier, amount)
	if err != nil {
		return errorReply(err)
	}

	return fmt.Sprintf(
		"%s %s = %s %s\n%s: %s",
		c.Amount.StringFixed(2),
		origin,
		c.Converted.StringFixed(2),
		destination,
		c.Name,
		c.Rate.String(),
	)
}

func (r *Responder) usdt(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return helpMessage
	}

	country, ok := r.countries[strings.ToLower(args[0])]
	if !ok {
		return fmt.Sprintf(msgUnknownCountry, args[0])
	}

	amount, err := parseAmount(args[1])
	if err != nil {
		return fmt.Sprintf(msgInvalidAmount, args[1])
	}

	c, err := r.quotes.ToUSDT(ctx, country, amount)
	if err != nil {
		return errorReply(err)
	}

	return fmt.Sprintf(
		"%s en %s = %s USDT\n%s: %s",
		c.Amount.StringFixed(2),
		country,
		c.Converted.StringFixed(2),
		c.Name,
		c.Rate.String(),
	)
}

// resolvePair resolves the pair countries and the optional tier.
// A non-empty reply is returned instead when an argument is unknown
func (r *Responder) resolvePair(
	originArg, destinationArg string,
	tierArg []string,
) (string, string, engine.Tier, string) {
	origin, ok := r.countries[strings.ToLower(originArg)]
	if !ok {
		return "", "", "", fmt.Sprintf(msgUnknownCountry, originArg)
	}

	destination, ok := r.countries[strings.ToLower(destinationArg)]
	if !ok {
		return "", "", "", fmt.Sprintf(msgUnknownCountry, destinationArg)
	}

	tier := engine.TierPublic

	if len(tierArg) > 0 {
		if tier, ok = engine.ParseTier(strings.ToLower(tierArg[0])); !ok {
			return "", "", "", fmt.Sprintf(msgUnknownTier, tierArg[0])
		}
	}

	return origin, destination, tier, ""
}

// parseCommand splits "/cmd@botname a b" into the command and its arguments
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}

	command, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")

	return strings.ToLower(command), fields[1:]
}

// parseAmount parses a positive amount, accepting a decimal comma
func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %w", err)
	}

	if !amount.IsPositive() {
		return decimal.Zero, errInvalidArguments
	}

	return amount, nil
}

func errorReply(err error) string {
	switch {
	case errors.Is(err, quote.ErrRateUnavailable), errors.Is(err, quote.ErrInvalidPair):
		return msgRateUnavailable
	case errors.Is(err, quote.ErrInvalidAmount):
		return fmt.Sprintf(msgInvalidAmount, "0")
	default:
		return msgInternalError
	}
}
