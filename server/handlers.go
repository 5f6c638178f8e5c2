package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sig-0/p2prates/engine"
	"github.com/sig-0/p2prates/quote"
	"github.com/sig-0/p2prates/storage/types"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

var (
	errUnableToFetchRates   = errors.New("unable to fetch rates")
	errUnableToFetchBuckets = errors.New("unable to fetch bucket rates")

	errMissingName   = errors.New("missing rate name")
	errInvalidLimit  = errors.New("invalid limit")
	errInvalidTier   = errors.New("invalid tier")
	errInvalidAmount = errors.New("invalid amount")
	errInvalidSide   = errors.New("invalid side")
)

// RateNames lists the names of every published rate
func (s *Server) RateNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.quotes.Names(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch rate names",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errUnableToFetchRates)

		return
	}

	writeJSON(w, http.StatusOK, &RateNamesResponse{
		Results: names,
	})
}

// LatestRate fetches the latest value of the ?name= rate
func (s *Server) LatestRate(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, errMissingName)

		return
	}

	rate, err := s.quotes.Rate(r.Context(), name)
	if err != nil {
		s.writeQuoteError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, rate)
}

// RateHistory fetches the latest ?limit= values of the ?name= rate
func (s *Server) RateHistory(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, errMissingName)

		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	rows, err := s.quotes.History(r.Context(), name, limit)
	if err != nil {
		s.writeQuoteError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, &types.Page[*types.NamedRate]{
		Results: rows,
		Total:   int64(len(rows)),
	})
}

// PairQuote fetches the latest pair rate of the ?tier= (public by default),
// converting the ?amount= if given
func (s *Server) PairQuote(w http.ResponseWriter, r *http.Request) {
	var (
		origin      = chi.URLParam(r, "origin")
		destination = chi.URLParam(r, "destination")

		tierParam   = r.URL.Query().Get("tier")
		amountParam = r.URL.Query().Get("amount")
	)

	tier, err := parseTierParam(tierParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	amount, err := parseAmount(amountParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	if amount == nil {
		q, err := s.quotes.PairQuote(r.Context(), origin, destination, tier)
		if err != nil {
			s.writeQuoteError(w, err)

			return
		}

		writeJSON(w, http.StatusOK, newQuoteResponse(q))

		return
	}

	c, err := s.quotes.Convert(r.Context(), origin, destination, tier, *amount)
	if err != nil {
		s.writeQuoteError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, newConversionResponse(c))
}

// USDT converts the local ?amount= of the country into USDT
func (s *Server) USDT(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")

	amount, err := parseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	if amount == nil {
		writeError(w, http.StatusBadRequest, errInvalidAmount)

		return
	}

	c, err := s.quotes.ToUSDT(r.Context(), country, *amount)
	if err != nil {
		s.writeQuoteError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, newConversionResponse(c))
}

// Buckets fetches the latest bucket rates of the market
func (s *Server) Buckets(w http.ResponseWriter, r *http.Request) {
	var (
		label     = chi.URLParam(r, "label")
		sideParam = chi.URLParam(r, "side")
	)

	side := types.Side(strings.ToUpper(strings.TrimSpace(sideParam)))
	if side != types.SideBUY && side != types.SideSELL {
		writeError(w, http.StatusBadRequest, errInvalidSide)

		return
	}

	rows, err := s.quotes.Buckets(r.Context(), label, side)
	if err != nil {
		if errors.Is(err, quote.ErrRateUnavailable) {
			writeError(w, http.StatusNotFound, err)

			return
		}

		s.logger.Debug(
			"unable to fetch bucket rates",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errUnableToFetchBuckets)

		return
	}

	writeJSON(w, http.StatusOK, &BucketsResponse{
		Results: rows,
	})
}

// writeQuoteError maps the quote service errors to HTTP statuses
func (s *Server) writeQuoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quote.ErrRateUnavailable):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, quote.ErrInvalidAmount), errors.Is(err, quote.ErrInvalidPair):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Debug(
			"unable to fetch rates",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errUnableToFetchRates)
	}
}

func parseLimit(limitRaw string) (int, error) {
	limit := defaultLimit

	if v := strings.TrimSpace(limitRaw); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, errInvalidLimit
		}

		limit = n
	}

	if limit == 0 {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	return limit, nil
}

func parseTierParam(tierRaw string) (engine.Tier, error) {
	v := strings.ToLower(strings.TrimSpace(tierRaw))
	if v == "" {
		return engine.TierPublic, nil
	}

	tier, ok := engine.ParseTier(v)
	if !ok {
		return "", errInvalidTier
	}

	return tier, nil
}

// parseAmount parses the optional positive amount
func parseAmount(amountRaw string) (*decimal.Decimal, error) {
	v := strings.TrimSpace(amountRaw)
	if v == "" {
		return nil, nil
	}

	amount, err := decimal.NewFromString(v)
	if err != nil || !amount.IsPositive() {
		return nil, errInvalidAmount
	}

	return &amount, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
