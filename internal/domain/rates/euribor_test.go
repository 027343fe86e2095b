package rates

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ratesPage = `<html><body>
<table class="table table-striped">
<tr><td>Euribor 3 meses</td><td>2,054 %</td><td>2,152 %</td></tr>
<tr><td>Euribor 6 meses</td><td>2,101 %</td><td>2,205 %</td></tr>
<tr><td>Euribor 12 meses</td><td>2,180 %</td><td>2,301 %</td></tr>
<tr><td>Outra linha</td><td>9,999 %</td></tr>
</table>
</body></html>`

func testService(t *testing.T, page string) *Service {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	return NewService(srv.URL+"/%d/", slog.New(slog.DiscardHandler))
}

func TestRefresh(t *testing.T) {
	s := testService(t, ratesPage)

	require.NoError(t, s.Refresh(context.Background()))

	got := s.Rates()
	require.Len(t, got, 3)
	// The last observation of each row wins: 2,152 % becomes 0.02152.
	assert.True(t, got["euribor 3 meses"].Equal(decimal.NewFromFloat(0.02152)))
	assert.True(t, got["euribor 6 meses"].Equal(decimal.NewFromFloat(0.02205)))
	assert.True(t, got["euribor 12 meses"].Equal(decimal.NewFromFloat(0.02301)))
}

func TestRefresh_NoTenorRows(t *testing.T) {
	s := testService(t, "<html><body><p>sem tabela</p></body></html>")

	err := s.Refresh(context.Background())
	assert.ErrorContains(t, err, "no tenor rows")
}

func TestRefresh_KeepsCacheOnFailure(t *testing.T) {
	s := testService(t, ratesPage)
	require.NoError(t, s.Refresh(context.Background()))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	s.sourceURL = srv.URL + "/%d/"

	assert.Error(t, s.Refresh(context.Background()))
	assert.Len(t, s.Rates(), 3)
}

func TestParseRateTable(t *testing.T) {
	got, err := parseRateTable(strings.NewReader(ratesPage))
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.NotContains(t, got, "outra linha")
}

func TestKnown(t *testing.T) {
	s := testService(t, ratesPage)

	t.Run("empty cache accepts any rate", func(t *testing.T) {
		assert.True(t, s.Known(decimal.NewFromFloat(0.9)))
	})

	require.NoError(t, s.Refresh(context.Background()))

	t.Run("cached rate is known", func(t *testing.T) {
		assert.True(t, s.Known(decimal.NewFromFloat(0.02152)))
	})

	t.Run("uncached rate is unknown", func(t *testing.T) {
		assert.False(t, s.Known(decimal.NewFromFloat(0.09)))
	})
}
