package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sig-0/p2prates/p2p"
	"github.com/sig-0/p2prates/storage/types"
)

type fetchPageDelegate func(context.Context, p2p.PageQuery) ([]p2p.RawOffer, error)

type mockFetcher struct {
	fetchPageFn fetchPageDelegate
}

func (m *mockFetcher) FetchPage(ctx context.Context, q p2p.PageQuery) ([]p2p.RawOffer, error) {
	if m.fetchPageFn != nil {
		return m.fetchPageFn(ctx, q)
	}

	return nil, nil
}

// rawPage builds a page of raw records with the given prices,
// each from a distinct advertiser
func rawPage(prefix string, methods []string, prices ...float64) []p2p.RawOffer {
	out := make([]p2p.RawOffer, 0, len(prices))

	tradeMethods := make([]p2p.RawTradeMethod, 0, len(methods))
	for _, m := range methods {
		tradeMethods = append(tradeMethods, p2p.RawTradeMethod{TradeMethodName: m})
	}

	for i, price := range prices {
		id := prefix + strconv.Itoa(i)

		out = append(out, p2p.RawOffer{
			Adv: p2p.RawAdv{
				AdvNo:        "adv-" + id,
				Price:        strconv.FormatFloat(price, 'f', -1, 64),
				TradeMethods: tradeMethods,
			},
			Advertiser: p2p.RawAdvertiser{
				UserNo:   "user-" + id,
				NickName: "seller-" + id,
			},
		})
	}

	return out
}

// offers builds normalized offers with the given prices
func offers(side types.Side, prices ...float64) []p2p.Offer {
	out := make([]p2p.Offer, 0, len(prices))

	for i, price := range prices {
		out = append(out, p2p.Offer{
			AdvNo:  fmt.Sprintf("adv-%d", i),
			Seller: fmt.Sprintf("seller-%d", i),
			Side:   side,
			Price:  price,
		})
	}

	return out
}

// pageBook serves the first page from the book of the fiat,
// and an exhausted book afterwards
func pageBook(book map[string][]p2p.RawOffer) *mockFetcher {
	return &mockFetcher{
		fetchPageFn: func(_ context.Context, q p2p.PageQuery) ([]p2p.RawOffer, error) {
			if q.Page > 1 {
				return nil, nil
			}

			return book[q.Fiat+"|"+q.Side.String()], nil
		},
	}
}
