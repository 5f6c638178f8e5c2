package env

const (
	// Prefix is the prefix of every p2prates environment variable
	Prefix = "P2PRATES_"

	// DBURLSuffix is the PostgreSQL connection string variable suffix
	DBURLSuffix = "DB_URL"

	// BotTokenSuffix is the Telegram bot token variable suffix
	BotTokenSuffix = "BOT_TOKEN"
)
