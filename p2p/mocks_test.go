package p2p

import (
	"context"
	"strconv"
)

type fetchPageDelegate func(context.Context, PageQuery) ([]RawOffer, error)

type mockFetcher struct {
	fetchPageFn fetchPageDelegate
}

func (m *mockFetcher) FetchPage(ctx context.Context, q PageQuery) ([]RawOffer, error) {
	if m.fetchPageFn != nil {
		return m.fetchPageFn(ctx, q)
	}

	return nil, nil
}

// rawOffer builds a raw record with the given ad number, price and method label
func rawOffer(advNo, price, method string) RawOffer {
	return RawOffer{
		Adv: RawAdv{
			AdvNo: advNo,
			Price: price,
			TradeMethods: []RawTradeMethod{
				{TradeMethodName: method},
			},
		},
		Advertiser: RawAdvertiser{
			UserNo:   "user-" + advNo,
			NickName: "seller-" + advNo,
		},
	}
}

// rawPage builds a page of n raw records starting at the given price
func rawPage(prefix string, n int, start float64, method string) []RawOffer {
	out := make([]RawOffer, 0, n)

	for i := 0; i < n; i++ {
		out = append(out, rawOffer(
			prefix+strconv.Itoa(i),
			strconv.FormatFloat(start+float64(i), 'f', 2, 64),
			method,
		))
	}

	return out
}
