package domain

// Phase identifies the monitoring stage a mint is in.
type Phase string

const (
	// PhaseInitial covers the qualification window right after creation.
	PhaseInitial Phase = "INITIAL"
	// PhaseActive covers position tracking after entry conditions were met.
	PhaseActive Phase = "ACTIVE"
)

// MonitoringJob is the payload carried by a recurring monitoring job.
type MonitoringJob struct {
	Mint       string  // mint address (base58)
	Creator    string  // creator wallet, set for INITIAL jobs
	Phase      Phase   // INITIAL or ACTIVE
	StartTime  int64   // job creation time, Unix milliseconds
	EntryPrice float64 // captured entry price, set for ACTIVE jobs
	Attempts   int     // completed tick count
}

// MonitoringStatus is the process-wide subscription state mirrored into the
// key-value status store so a restarted process can detect and resume a
// previously running subscription.
type MonitoringStatus struct {
	IsMonitoring   bool   `json:"isMonitoring"`
	SubscriptionID *int64 `json:"subscriptionId"`
	LastUpdated    int64  `json:"lastUpdated"` // Unix milliseconds
}
