// Package constants provides shared constants for the cashout-forecast application.
package constants

// MonthKeyLayout is the canonical month key format used throughout the
// timeline and in every output.
const MonthKeyLayout = "2006-01"

// DateLayout is the calendar date format expected for contract, delivery and
// payment dates.
const DateLayout = "2006-01-02"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPlaces is the number of decimals kept on every monetary amount
	DecimalPlaces = 2

	// FactorDecimalPlaces is the number of decimals kept on correction factors
	FactorDecimalPlaces = 8

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// BalanceEpsilon is the magnitude under which a trailing loan balance is
	// treated as exactly zero
	BalanceEpsilon = 0.000001

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Item defaults applied when a document leaves a recurrence field unset.
const (
	// DefaultEveryMonths is the balloon step used when none is provided
	DefaultEveryMonths = 6

	// DefaultInstallmentCount is the installment count used when none is provided
	DefaultInstallmentCount = 12

	// ToleranceWarningDays is the grace period above which a contract is flagged
	ToleranceWarningDays = 180
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the Results document output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultSimulationFile is the default simulation document file name
	DefaultSimulationFile = "simulation.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultRateLimitPerSecond is the default sustained request rate per client
	DefaultRateLimitPerSecond = 10.0

	// DefaultRateLimitBurst is the default request burst per client
	DefaultRateLimitBurst = 20
)

// Store constants
const (
	// DBVersion is the current version of the record database document
	DBVersion = 3

	// DBKey is the key the database document is stored under
	DBKey = "APTO_SIM_DB_V1"

	// StoreBackendMemory keeps the database document in process memory
	StoreBackendMemory = "memory"

	// StoreBackendRedis keeps the database document in Redis
	StoreBackendRedis = "redis"

	// StoreBackendSQLite keeps the database document in a SQLite file
	StoreBackendSQLite = "sqlite"

	// StoreBackendPostgres keeps the database document in PostgreSQL
	StoreBackendPostgres = "postgres"
)

// Financing term solver bounds
const (
	// DefaultMinFinancingMonths is the shortest term the solver considers
	DefaultMinFinancingMonths = 1

	// DefaultMaxFinancingMonths is the longest term the solver considers (35 years)
	DefaultMaxFinancingMonths = 420
)
