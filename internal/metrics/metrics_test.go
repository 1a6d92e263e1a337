package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveInvocation(t *testing.T) {
	before := testutil.ToFloat64(InvocationsTotal.WithLabelValues(OutcomeTimeout))
	ObserveInvocation(OutcomeTimeout, 250*time.Millisecond)
	after := testutil.ToFloat64(InvocationsTotal.WithLabelValues(OutcomeTimeout))
	assert.Equal(t, before+1, after)
}

func TestObserveCase(t *testing.T) {
	before := testutil.ToFloat64(CasesTotal.WithLabelValues("pass"))
	ObserveCase("pass")
	assert.Equal(t, before+1, testutil.ToFloat64(CasesTotal.WithLabelValues("pass")))
}

func TestHandler(t *testing.T) {
	ObserveInvocation(OutcomeExited, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clicheck_runner_invocations_total")
}
