package hn

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wovennews/config"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestFetchCountsUnderRawEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "[1,2,3]")
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.API.BaseURL = srv.URL + "/v0"
	cfg.HTTP.Timeout = config.Duration{Duration: 2 * time.Second}
	client := NewClient(cfg)

	raw := upstreamRequests.WithLabelValues(endpointRaw, "ok")
	item := upstreamRequests.WithLabelValues(endpointItem, "ok")
	rawBefore, itemBefore := counterValue(t, raw), counterValue(t, item)

	body, err := client.Fetch(context.Background(), srv.URL+"/v0/topstories.json")
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", string(body))

	assert.Equal(t, rawBefore+1, counterValue(t, raw))
	assert.Equal(t, itemBefore, counterValue(t, item))
}
