package env

const (
	// Prefix is the prefix of every environment variable read by the CLI.
	// A flag such as --log-file maps to BNARATES_LOG_FILE
	Prefix = "BNARATES"

	// DBURLSuffix completes the PostgreSQL connection string variable
	DBURLSuffix = "_DB_URL"
)
