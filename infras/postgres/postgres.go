package postgres

//nolint:revive
import (
	"time"

	"studio/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const driverName = "postgres"

// Connection holds the write pool used for bookings and the read pool used for listings.
type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

func New(config *config.Config) *Connection {
	pg := config.DB.Postgres

	return &Connection{
		Read:  connect("read", pg.Read, config),
		Write: connect("write", pg.Write, config),
	}
}

// connect retries until the database accepts connections or MaxRetry is exhausted, in which
// case it returns nil and the first query surfaces the failure.
func connect(name string, node config.PostgresNode, config *config.Config) *sqlx.DB {
	pg := config.DB.Postgres
	logger := log.With().Str("name", name).Str("host", node.Host).Str("port", node.Port).Str("dbName", pg.Prefix+node.Name).Logger()

	for attempt := 1; attempt <= max(pg.MaxRetry, 1); attempt++ {
		db, err := sqlx.Connect(driverName, node.DSN(pg.Prefix))
		if err == nil {
			db.SetMaxIdleConns(pg.MaxIdleConns)
			db.SetMaxOpenConns(pg.MaxOpenConns)

			logger.Info().Msg("Connected to database")

			return db
		}

		logger.Error().Err(err).Int("attempt", attempt).Msg("Failed connecting to database, retrying")

		time.Sleep(time.Duration(pg.RetryWaitTime) * time.Second)
	}

	logger.Error().Msg("Giving up connecting to database")

	return nil
}
