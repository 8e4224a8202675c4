package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestRecordMutation(t *testing.T) {
	okLabels := map[string]string{"operation": "create", "result": "ok"}
	errLabels := map[string]string{"operation": "create", "result": "error"}
	okBefore := counterValue(t, "assurcore_organization_mutations_total", okLabels)
	errBefore := counterValue(t, "assurcore_organization_mutations_total", errLabels)

	RecordMutation("create", nil)
	RecordMutation("create", errors.New("boom"))
	RecordMutation("create", nil)

	require.Equal(t, okBefore+2, counterValue(t, "assurcore_organization_mutations_total", okLabels))
	require.Equal(t, errBefore+1, counterValue(t, "assurcore_organization_mutations_total", errLabels))
}

func TestRecordCacheRequest(t *testing.T) {
	hit := map[string]string{"result": "hit"}
	before := counterValue(t, "assurcore_tenant_cache_requests_total", hit)

	RecordCacheRequest(true)

	require.Equal(t, before+1, counterValue(t, "assurcore_tenant_cache_requests_total", hit))
}

func TestRecordRebuild(t *testing.T) {
	RecordRebuild(true, 42, 30*time.Millisecond)

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "assurcore_hierarchy_rebuild_rows" {
			require.Equal(t, float64(42), mf.GetMetric()[0].GetGauge().GetValue())
			return
		}
	}
	t.Fatal("rebuild rows gauge not registered")
}
