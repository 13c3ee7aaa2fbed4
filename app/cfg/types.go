package cfg

type Cfg struct {
	// Pipeline configuration
	DataDir             string
	SourcesFile         string
	DBPath              string
	RollingWindowDays   int
	RejectedCleanupDays int
	ConfidenceThreshold float64
	BatchSize           int
	BatchDelayMs        int
	ProcessItemLimit    int

	// Fetching
	FetchTimeout int
	UserAgent    string

	// Classification
	ClassifierURL string

	// Serve mode
	Serve             bool
	Port              string
	APIAccessKey      string
	WorkerCount       int
	SchedulerInterval int

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
