package engine

import (
	"time"

	"github.com/sig-0/p2prates/ingest"
	"github.com/sig-0/p2prates/p2p"
	"github.com/sig-0/p2prates/storage/types"
)

// Now returns the current time in the fixed UTC-4 offset
func Now() time.Time {
	return time.Now().In(types.Zone)
}

// DefaultSchedule runs the engine at the top of every hour, 09:00 to 21:00 Caracas time
func DefaultSchedule() ingest.HourlyWindow {
	loc, err := time.LoadLocation("America/Caracas")
	if err != nil {
		loc = types.Zone
	}

	return ingest.HourlyWindow{
		Location: loc,
		Start:    9,
		End:      21,
	}
}

const (
	buyRank  = 5
	sellRank = 1

	// venezuelaTradeSize is the USDT volume of the Venezuela amount refinement
	venezuelaTradeSize = 300
)

// Method rule keys of the default tables
const (
	MethodZelle           = "zelle"
	MethodBizum           = "bizum"
	MethodBancolombia     = "bancolombia"
	MethodBancoDeCredito  = "banco_de_credito"
	MethodBancoPichincha  = "banco_pichincha"
	MethodMercantilPanama = "mercantil_bank_panama"
)

// DefaultTables returns the production business tables
func DefaultTables() *Tables {
	return &Tables{
		Markets:         append(defaultBuyMarkets(), defaultSellMarkets()...),
		Methods:         defaultMethods(),
		Margins:         defaultMargins(),
		OriginMargins:   map[string]Margin{"México": {Public: 0.07, Wholesale: 0.10}},
		DefaultMargin:   Margin{Public: 0.07, Wholesale: 0.04},
		Orientation:     defaultOrientation(),
		Overrides:       map[string]Override{},
		PairDecimals:    defaultPairDecimals(),
		DefaultDecimals: 4,
		Buckets: &Buckets{
			PublicAmount:    200,
			WholesaleAmount: 3000,
			TopK:            8,
		},
		EarlyStop: defaultDepth,
	}
}

func defaultMethods() map[string]*p2p.MethodRule {
	return map[string]*p2p.MethodRule{
		MethodZelle: {
			Aliases:  []string{"Zelle", "Zelle (Bank Transfer)", "Zelle Transfer"},
			Keywords: []string{"zelle"},
			PayTypes: []string{"Zelle"},
		},
		MethodBizum: {
			Aliases:  []string{"Bizum"},
			Keywords: []string{"bizum", "bizzum", "bizaum"},
			PayTypes: []string{"Bizum"},
		},
		MethodBancolombia: {
			Aliases:  []string{"BancolombiaSA", "Bancolombia", "Bancolombia S.A", "Bancolombia S.A."},
			Keywords: []string{"bancolombia"},
			PayTypes: []string{"BancolombiaSA", "Bancolombia S.A", "Bancolombia"},
		},
		MethodBancoDeCredito: {
			Aliases:  []string{"BancoDeCredito", "BCP", "Banco de Credito", "Banco de Crédito"},
			Keywords: []string{"banco de credito", "banco de crédito", "bcp"},
			PayTypes: []string{"BancoDeCredito"},
		},
		MethodBancoPichincha: {
			Aliases:  []string{"BancoPichincha", "Banco Pichincha", "Pichincha"},
			Keywords: []string{"pichincha"},
			PayTypes: []string{"BancoPichincha"},
		},
		MethodMercantilPanama: {
			Aliases: []string{
				"MercantilBankPanama",
				"Mercantil Bank Panama",
				"Mercantil Bank Panamá",
				"Mercantil",
			},
			Keywords: []string{"mercantil bank panama", "mercantil bank panamá", "mercantil"},
			PayTypes: []string{"MercantilBankPanama"},
		},
	}
}

func defaultBuyMarkets() []Market {
	buy := func(label, fiat, country, method string) Market {
		return Market{
			Label:     label,
			Fiat:      fiat,
			Side:      types.SideBUY,
			Countries: []string{country},
			Method:    method,
			Selection: RankSelection(buyRank),
		}
	}

	venezuela := buy("Venezuela", "VES", "VE", "")
	venezuela.UniqueMerchants = true
	venezuela.TradeSize = venezuelaTradeSize

	return []Market{
		venezuela,
		buy("Colombia", "COP", "CO", MethodBancolombia),
		buy("Argentina", "ARS", "AR", ""),
		buy("Perú", "PEN", "PE", MethodBancoDeCredito),
		buy("Europa", "EUR", "ES", MethodBizum),
		buy("USA", "USD", "US", MethodZelle),
		buy("México", "MXN", "MX", ""),
		buy("Panamá", "USD", "PA", MethodMercantilPanama),
		buy("Ecuador", "USD", "EC", MethodBancoPichincha),
		buy("Chile", "CLP", "CL", ""),
	}
}

func defaultSellMarkets() []Market {
	sell := func(label, fiat, country, method string) Market {
		return Market{
			Label:     label,
			Fiat:      fiat,
			Side:      types.SideSELL,
			Countries: []string{country},
			Method:    method,
			Selection: RankSelection(sellRank),
		}
	}

	return []Market{
		sell("Venezuela", "VES", "VE", ""),
		sell("Argentina", "ARS", "AR", ""),
		sell("Brasil", "BRL", "BR", ""),
		sell("Colombia", "COP", "CO", MethodBancolombia),
		sell("Perú", "PEN", "PE", MethodBancoDeCredito),
		sell("Europa", "EUR", "ES", MethodBizum),
		sell("USA", "USD", "US", MethodZelle),
		sell("México", "MXN", "MX", ""),
		sell("Panamá", "USD", "PA", MethodMercantilPanama),
		sell("Ecuador", "USD", "EC", MethodBancoPichincha),
		sell("Chile", "CLP", "CL", ""),
	}
}

func defaultMargins() map[Pair]Margin {
	m := func(public, wholesale float64) Margin {
		return Margin{Public: public, Wholesale: wholesale}
	}

	return map[Pair]Margin{
		{"Chile", "Venezuela"}:     m(0.055, 0.04),
		{"Chile", "Colombia"}:      m(0.06, 0.04),
		{"Chile", "Argentina"}:     m(0.07, 0.05),
		{"Chile", "Perú"}:          m(0.06, 0.04),
		{"Chile", "Brasil"}:        m(0.10, 0.05),
		{"Chile", "Europa"}:        m(0.07, 0.05),
		{"Chile", "USA"}:           m(0.10, 0.07),
		{"Chile", "México"}:        m(0.10, 0.07),
		{"Chile", "Panamá"}:        m(0.07, 0.05),
		{"Chile", "Ecuador"}:       m(0.07, 0.05),
		{"Colombia", "Venezuela"}:  m(0.06, 0.04),
		{"Argentina", "Venezuela"}: m(0.07, 0.04),
		{"México", "Venezuela"}:    m(0.07, 0.10),
		{"USA", "Venezuela"}:       m(0.10, 0.06),
		{"Perú", "Venezuela"}:      m(0.07, 0.04),
		{"Brasil", "Venezuela"}:    m(0.10, 0.05),
		{"Europa", "Venezuela"}:    m(0.10, 0.05),
		{"Panamá", "Venezuela"}:    m(0.07, 0.04),
		{"Ecuador", "Venezuela"}:   m(0.07, 0.04),
		{"Colombia", "Argentina"}:  m(0.07, 0.04),
		{"Colombia", "Europa"}:     m(0.07, 0.04),
		{"Argentina", "Ecuador"}:   m(0.07, 0.04),
		{"Europa", "Ecuador"}:      m(0.10, 0.05),
		{"Colombia", "Ecuador"}:    m(0.07, 0.04),
	}
}

func defaultOrientation() map[Pair]struct{} {
	return map[Pair]struct{}{
		{"Chile", "USA"}:          {},
		{"Colombia", "Venezuela"}: {},
	}
}

func defaultPairDecimals() map[Pair]int {
	return map[Pair]int{
		{"Chile", "Panamá"}:  5,
		{"Chile", "Ecuador"}: 5,
		{"Chile", "Europa"}:  5,
		{"Chile", "Brasil"}:  5,
	}
}
