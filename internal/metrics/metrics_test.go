package metrics

import (
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerExposesDaybookMetrics(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(ln.Addr().String(), zerolog.Nop())
	s.SetListener(ln)
	require.NoError(t, s.Start())
	defer s.Stop()

	BreaksInserted.WithLabelValues("gap").Add(2)
	StoreWritesTotal.WithLabelValues("insert").Inc()

	base := "http://" + ln.Addr().String()

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `daybook_breaks_inserted_total{reason="gap"}`)
	assert.Contains(t, string(body), `daybook_store_writes_total{op="insert"}`)
}

func TestCountersAccumulate(t *testing.T) {
	before := testutil.ToFloat64(ConsolidationsTotal)
	ConsolidationsTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ConsolidationsTotal))
}
