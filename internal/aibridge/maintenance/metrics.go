package maintenance

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	syncRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aibridge_ldap_sync_runs_total",
		Help: "LDAP sync passes by result (ok, error, skipped)",
	}, []string{"result"})

	syncUsers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aibridge_ldap_sync_users_total",
		Help: "Cached directory user transitions applied by sync (created, updated, disabled)",
	}, []string{"op"})

	syncWarnings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aibridge_ldap_sync_entry_warnings_total",
		Help: "Directory entries skipped during sync because of missing attributes",
	})
)

func init() {
	prometheus.MustRegister(syncRuns, syncUsers, syncWarnings)
}
