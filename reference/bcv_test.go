package reference

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/p2prates/storage/memory"
	"github.com/sig-0/p2prates/storage/mock"
	"github.com/sig-0/p2prates/storage/types"
)

const bcvPage = `<html><body>
<div id="euro"><div class="row"><div class="col-sm-6 col-xs-6 centrado"><strong> 41,83729350 </strong></div></div></div>
<div id="dolar"><div class="row"><div class="col-sm-6 col-xs-6 centrado"><strong> 36,54321000 </strong></div></div></div>
<div id="yuan"><div class="row"><div class="centrado"><strong> 5,04 </strong></div></div></div>
<div id="lira"><div class="row"><div class="centrado"><strong></strong></div></div></div>
<div class="pull-right dinpro center">Fecha Valor:
<span class="date-display-single" property="dc:date" content="2025-03-11T00:00:00-04:00">Martes, 11 Marzo 2025</span>
</div>
</body></html>`

func newTestBCV(t *testing.T, s *memory.Storage, body string, status int) *BCV {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return NewBCV(s, WithURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestBCV_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("valid page", func(t *testing.T) {
		t.Parallel()

		b := newTestBCV(t, memory.NewStorage(), bcvPage, http.StatusOK)

		rates, err := b.Fetch(context.Background())
		require.NoError(t, err)

		// Missing and empty sections are skipped
		require.Len(t, rates, 3)

		assert.Equal(t, "USD", rates[0].Currency)
		assert.Equal(t, "36.5432", rates[0].Value.String())
		assert.Equal(t, "EUR", rates[1].Currency)
		assert.Equal(t, "41.8373", rates[1].Value.String())
		assert.Equal(t, "CNY", rates[2].Currency)
		assert.Equal(t, "5.04", rates[2].Value.String())

		expectedDate := time.Date(2025, 3, 11, 4, 0, 0, 0, time.UTC)
		assert.True(t, expectedDate.Equal(rates[0].AsOf), rates[0].AsOf.String())
	})

	t.Run("invalid status code", func(t *testing.T) {
		t.Parallel()

		b := newTestBCV(t, memory.NewStorage(), "", http.StatusServiceUnavailable)

		_, err := b.Fetch(context.Background())

		assert.Error(t, err)
	})

	t.Run("no rates", func(t *testing.T) {
		t.Parallel()

		b := newTestBCV(t, memory.NewStorage(), "<html><body>mantenimiento</body></html>", http.StatusOK)

		_, err := b.Fetch(context.Background())

		assert.ErrorIs(t, err, errNoRates)
	})
}

func TestBCV_Run(t *testing.T) {
	t.Parallel()

	t.Run("saves the named rates", func(t *testing.T) {
		t.Parallel()

		var (
			s = memory.NewStorage()
			b = newTestBCV(t, s, bcvPage, http.StatusOK)
		)

		require.NoError(t, b.Run(context.Background()))

		rows, err := s.LatestRates(context.Background(), RateName("USD"), 1)
		require.NoError(t, err)
		require.Len(t, rows, 1)

		assert.Equal(t, "Tasa BCV USD", rows[0].Name)
		assert.Equal(t, "36.5432", rows[0].Value.String())
	})

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(bcvPage))
		}))
		t.Cleanup(srv.Close)

		var (
			saveErr = errors.New("storage error")
			s       = &mock.Storage{
				SaveRateFn: func(context.Context, *types.NamedRate) error {
					return saveErr
				},
			}

			b = NewBCV(s, WithURL(srv.URL))
		)

		assert.ErrorIs(t, b.Run(context.Background()), saveErr)
	})

	t.Run("daily job", func(t *testing.T) {
		t.Parallel()

		var (
			job = NewBCV(memory.NewStorage()).Job()
			now = time.Now()
		)

		assert.Equal(t, "bcv", job.Name())
		assert.Equal(t, now.Add(24*time.Hour), job.Next(now))
	})
}

func TestBCV_ParseHelpers(t *testing.T) {
	t.Parallel()

	t.Run("numbers", func(t *testing.T) {
		t.Parallel()

		v, err := parseBCVNumber(" 1.234,56 ")
		require.NoError(t, err)
		assert.Equal(t, "1234.56", v.String())

		for _, invalid := range []string{"", "  ", "abc", "0,00", "-1,5"} {
			_, err := parseBCVNumber(invalid)

			assert.Error(t, err, invalid)
		}
	})

	t.Run("dates", func(t *testing.T) {
		t.Parallel()

		d, err := parseBCVDate("Martes, 13 Enero 2026")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC), d)

		d, err = parseBCVDate("1 Setiembre 2025")
		require.NoError(t, err)
		assert.Equal(t, time.September, d.Month())

		for _, invalid := range []string{"", "Martes", "13 Foo 2026", "xx Enero 2026", "13 Enero yy"} {
			_, err := parseBCVDate(invalid)

			assert.Error(t, err, invalid)
		}
	})
}
