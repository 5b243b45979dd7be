package ugc

// Config holds the run service settings.
type Config struct {
	// SkipListPath is a local skip list file. Empty disables it.
	SkipListPath string `mapstructure:"skiplist_path" default:""`
	// SkipListObject is a skip list object in the storage bucket. Empty disables it.
	SkipListObject string `mapstructure:"skiplist_object" default:"skiplist.txt"`
	// ReportPrefix is the storage prefix of archived run reports.
	ReportPrefix string `mapstructure:"report_prefix" default:"reports/"`
	// ReportRetention is the number of archived reports kept.
	ReportRetention int `mapstructure:"report_retention" default:"50"`
	// SyncSchedule is the cron spec of periodic sync runs. Empty disables them.
	SyncSchedule string `mapstructure:"sync_schedule" default:"*/30 * * * *"`
	// ReconcileSchedule is the cron spec of periodic reconciliation (applied). Empty disables it.
	ReconcileSchedule string `mapstructure:"reconcile_schedule" default:""`
}
