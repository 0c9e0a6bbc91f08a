package storage

// Migration represents a database migration
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create leituras table",
			SQL: `
				CREATE TABLE IF NOT EXISTS leituras (
					seq INTEGER PRIMARY KEY AUTOINCREMENT,
					id TEXT NOT NULL UNIQUE,
					presenca BOOLEAN NOT NULL,
					acesso BOOLEAN NOT NULL,
					uid_tag TEXT NOT NULL,
					"timestamp" TEXT NOT NULL
				);

				CREATE INDEX IF NOT EXISTS uid_ts ON leituras(uid_tag);
				CREATE INDEX IF NOT EXISTS idx_leituras_timestamp ON leituras("timestamp");
			`,
		},
		{
			Version:     "002",
			Description: "Create logs_api table",
			SQL: `
				CREATE TABLE IF NOT EXISTS logs_api (
					seq INTEGER PRIMARY KEY AUTOINCREMENT,
					id TEXT NOT NULL UNIQUE,
					api_endpoint TEXT NOT NULL,
					method TEXT NOT NULL,
					access_time TEXT NOT NULL,
					leitura_id TEXT,
					client_ip TEXT,
					payload TEXT, -- JSON
					status INTEGER NOT NULL,
					response_time_ms INTEGER
				);

				CREATE INDEX IF NOT EXISTS idx_logs_api_access_time ON logs_api(access_time);
			`,
		},
	}
}

// GetPostgresMigrations returns PostgreSQL migration scripts
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create leituras table",
			SQL: `
				CREATE TABLE IF NOT EXISTS leituras (
					seq BIGSERIAL PRIMARY KEY,
					id TEXT NOT NULL UNIQUE,
					presenca BOOLEAN NOT NULL,
					acesso BOOLEAN NOT NULL,
					uid_tag TEXT NOT NULL,
					"timestamp" TEXT NOT NULL
				);

				CREATE INDEX IF NOT EXISTS uid_ts ON leituras(uid_tag);
				CREATE INDEX IF NOT EXISTS idx_leituras_timestamp ON leituras("timestamp");
			`,
		},
		{
			Version:     "002",
			Description: "Create logs_api table",
			SQL: `
				CREATE TABLE IF NOT EXISTS logs_api (
					seq BIGSERIAL PRIMARY KEY,
					id TEXT NOT NULL UNIQUE,
					api_endpoint TEXT NOT NULL,
					method TEXT NOT NULL,
					access_time TEXT NOT NULL,
					leitura_id TEXT,
					client_ip TEXT,
					payload JSONB,
					status INTEGER NOT NULL,
					response_time_ms BIGINT
				);

				CREATE INDEX IF NOT EXISTS idx_logs_api_access_time ON logs_api(access_time);
			`,
		},
	}
}
