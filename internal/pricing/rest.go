package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxErrorBody = 16 << 10

// RESTRepository reads pricing_plans through the PostgREST data API using
// the service-role key.
type RESTRepository struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

func NewRESTRepository(serviceURL, serviceKey string, timeout time.Duration) *RESTRepository {
	return &RESTRepository{
		baseURL:    strings.TrimRight(serviceURL, "/") + "/rest/v1",
		serviceKey: serviceKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (r *RESTRepository) ListPlans(ctx context.Context) ([]Row, error) {
	q := url.Values{
		"select": {strings.Join(Columns, ",")},
		"order":  {"sort_order.asc"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/pricing_plans?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build pricing request: %w", err)
	}
	req.Header.Set("apikey", r.serviceKey)
	req.Header.Set("Authorization", "Bearer "+r.serviceKey)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pricing plans: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("fetch pricing plans: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode pricing plans: %w", err)
	}
	return rows, nil
}
