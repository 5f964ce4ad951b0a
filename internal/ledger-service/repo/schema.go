package repo

// dialect isola as poucas diferenças entre Postgres (produção) e SQLite (testes)
type dialect struct {
	forShare string
	schema   []string
}

func dialectFor(driverName string) dialect {
	switch driverName {
	case "sqlite", "sqlite3":
		return dialect{schema: sqliteSchema}
	default:
		return dialect{forShare: " FOR SHARE", schema: postgresSchema}
	}
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id     BIGINT PRIMARY KEY,
		username    TEXT NOT NULL,
		balance     BIGINT NOT NULL DEFAULT 500 CHECK (balance >= 0),
		referred_by BIGINT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id            BIGSERIAL PRIMARY KEY,
		title         TEXT NOT NULL,
		option_1      TEXT NOT NULL,
		option_2      TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'finished')),
		winner_option INTEGER CHECK (winner_option IN (1, 2)),
		CHECK ((status = 'active' AND winner_option IS NULL) OR (status = 'finished' AND winner_option IS NOT NULL))
	)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users (user_id),
		event_id   BIGINT NOT NULL REFERENCES events (id),
		option_id  INTEGER NOT NULL CHECK (option_id IN (1, 2)),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_user ON predictions (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_event ON predictions (event_id, option_id)`,
	`CREATE OR REPLACE FUNCTION predictions_immutable() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'predictions are immutable';
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_predictions_immutable ON predictions`,
	`CREATE TRIGGER trg_predictions_immutable BEFORE UPDATE OR DELETE ON predictions
		FOR EACH ROW EXECUTE FUNCTION predictions_immutable()`,
	`CREATE TABLE IF NOT EXISTS balance_ledger (
		id             BIGSERIAL PRIMARY KEY,
		user_id        BIGINT NOT NULL REFERENCES users (user_id),
		operation_type TEXT NOT NULL,
		amount         BIGINT NOT NULL,
		prediction_id  BIGINT REFERENCES predictions (id),
		event_id       BIGINT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_balance_ledger_user ON balance_ledger (user_id, id DESC)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id     INTEGER PRIMARY KEY,
		username    TEXT NOT NULL,
		balance     INTEGER NOT NULL DEFAULT 500 CHECK (balance >= 0),
		referred_by INTEGER,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		title         TEXT NOT NULL,
		option_1      TEXT NOT NULL,
		option_2      TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'finished')),
		winner_option INTEGER CHECK (winner_option IN (1, 2)),
		CHECK ((status = 'active' AND winner_option IS NULL) OR (status = 'finished' AND winner_option IS NOT NULL))
	)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL REFERENCES users (user_id),
		event_id   INTEGER NOT NULL REFERENCES events (id),
		option_id  INTEGER NOT NULL CHECK (option_id IN (1, 2)),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_user ON predictions (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_event ON predictions (event_id, option_id)`,
	`CREATE TRIGGER IF NOT EXISTS trg_predictions_no_update BEFORE UPDATE ON predictions
	BEGIN
		SELECT RAISE(ABORT, 'predictions are immutable');
	END`,
	`CREATE TRIGGER IF NOT EXISTS trg_predictions_no_delete BEFORE DELETE ON predictions
	BEGIN
		SELECT RAISE(ABORT, 'predictions are immutable');
	END`,
	`CREATE TABLE IF NOT EXISTS balance_ledger (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id        INTEGER NOT NULL REFERENCES users (user_id),
		operation_type TEXT NOT NULL,
		amount         INTEGER NOT NULL,
		prediction_id  INTEGER REFERENCES predictions (id),
		event_id       INTEGER,
		created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_balance_ledger_user ON balance_ledger (user_id, id DESC)`,
}
