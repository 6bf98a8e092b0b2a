package internaldefs

import (
	authclient "github.com/MrEthical07/authclient"
)

// CounterDef names one client counter.
type CounterDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// HistogramDef names one client histogram.
type HistogramDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "authclient_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: authclient.MetricLoginSuccess, Name: "authclient_login_success_total", Help: "Logins that produced a cached session."},
	{ID: authclient.MetricLoginFailure, Name: "authclient_login_failure_total", Help: "Rejected or failed logins."},
	{ID: authclient.MetricLogoutSuccess, Name: "authclient_logout_success_total", Help: "Logouts acknowledged by the identity service."},
	{ID: authclient.MetricLogoutFailure, Name: "authclient_logout_failure_total", Help: "Logouts whose remote call failed."},
	{ID: authclient.MetricStatusCheck, Name: "authclient_status_check_total", Help: "Status checks that reached a verdict."},
	{ID: authclient.MetricStatusFailure, Name: "authclient_status_failure_total", Help: "Status checks that could not reach a verdict."},
	{ID: authclient.MetricDemoUsersFetch, Name: "authclient_demo_users_fetch_total", Help: "Demo-user listings fetched."},
	{ID: authclient.MetricRefreshSuccess, Name: "authclient_refresh_success_total", Help: "Successful token refreshes."},
	{ID: authclient.MetricRefreshFailure, Name: "authclient_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: authclient.MetricValidateSuccess, Name: "authclient_validate_success_total", Help: "Token validations that reached a verdict."},
	{ID: authclient.MetricValidateFailure, Name: "authclient_validate_failure_total", Help: "Token validations that could not reach a verdict."},
	{ID: authclient.MetricReconcileCleared, Name: "authclient_reconcile_cleared_total", Help: "Cached sessions dropped after the server reported them ended."},
	{ID: authclient.MetricStorageFault, Name: "authclient_storage_fault_total", Help: "Swallowed session storage faults."},
	{ID: authclient.MetricDecorateBearer, Name: "authclient_decorate_bearer_total", Help: "Requests decorated with a bearer token."},
	{ID: authclient.MetricDecorateSession, Name: "authclient_decorate_session_total", Help: "Requests sent in session mode without a credential."},
	{ID: authclient.MetricDecorateAnonymous, Name: "authclient_decorate_anonymous_total", Help: "Requests sent with no cached session."},
}

var HistogramDefs = []HistogramDef{
	{ID: authclient.MetricRemoteLatency, Name: "authclient_remote_latency_seconds", Help: "Identity service round-trip latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds; an implicit +Inf follows.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the eight snapshot buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
