//nolint:tagliatelle // Binance API uses camel case
package p2p

import (
	"encoding/json"

	"github.com/sig-0/p2prates/storage/types"
)

// DefaultAsset is the traded asset
const DefaultAsset = "USDT"

// PageQuery is a single order book page request
type PageQuery struct {
	Asset     string
	Fiat      string
	Side      types.Side
	Countries []string // empty is global
	PayTypes  []string // upstream method identifiers, empty is any
	Page      int      // 1-indexed
	Rows      int
}

// searchRequest is the request body for the Binance P2P API
type searchRequest struct {
	PublisherType *string  `json:"publisherType"`
	Asset         string   `json:"asset"`
	Fiat          string   `json:"fiat"`
	TradeType     string   `json:"tradeType"`
	PayTypes      []string `json:"payTypes"`
	Countries     []string `json:"countries"`
	Page          int      `json:"page"`
	Rows          int      `json:"rows"`
	MerchantCheck bool     `json:"merchantCheck"`
}

// searchResponse is the response from the Binance P2P API
type searchResponse struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Data    []RawOffer `json:"data"`
	Total   int        `json:"total"`
}

// RawOffer is a single order book record, as returned by the API
type RawOffer struct {
	Adv        RawAdv        `json:"adv"`
	Advertiser RawAdvertiser `json:"advertiser"`
}

type RawAdv struct {
	AdvNo                string           `json:"advNo"`
	Price                string           `json:"price"`
	MinSingleTransAmount string           `json:"minSingleTransAmount"`
	MaxSingleTransAmount string           `json:"maxSingleTransAmount"`
	Remarks              string           `json:"remarks"`
	AdvRemark            string           `json:"advRemark"`
	BuyerRemarks         string           `json:"buyerRemarks"`
	SellerRemarks        string           `json:"sellerRemarks"`
	TradeMethods         []RawTradeMethod `json:"tradeMethods"`
}

type RawTradeMethod struct {
	Identifier           string `json:"identifier"`
	PayType              string `json:"payType"`
	TradeMethodName      string `json:"tradeMethodName"`
	TradeMethodShortName string `json:"tradeMethodShortName"`
}

type RawAdvertiser struct {
	UserNo       string          `json:"userNo"`
	NickName     string          `json:"nickName"`
	UserType     string          `json:"userType"`
	UserIdentity string          `json:"userIdentity"`
	KYCLevel     json.RawMessage `json:"kycLevel"`
	Badges       json.RawMessage `json:"badges"`
	UserGrade    int             `json:"userGrade"`
	ProMerchant  bool            `json:"proMerchant"`
}
