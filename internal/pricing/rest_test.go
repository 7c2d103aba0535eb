package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTRepository_ListPlans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/pricing_plans", r.URL.Path)
		assert.Equal(t, "sort_order.asc", r.URL.Query().Get("order"))
		assert.Equal(t, strings.Join(Columns, ","), r.URL.Query().Get("select"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"a","slug":"free","monthly_price":"0","annual_price":"0","currency_code":"USD","sort_order":1},
			{"id":"b","slug":"pro","monthly_price":"24.00","annual_price":"19.50","currency_code":"USD","sort_order":2}
		]`))
	}))
	defer srv.Close()

	repo := NewRESTRepository(srv.URL+"/", "service-key", time.Second)
	rows, err := repo.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "pro", rows[1].Slug)
	assert.Equal(t, Decimal(19.5), rows[1].AnnualPrice)
}

func TestRESTRepository_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"relation does not exist"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewRESTRepository(srv.URL, "k", time.Second).ListPlans(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "relation does not exist")
}
