package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"   // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/nadzzz/domus/internal/message"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	device_key      VARCHAR(100) PRIMARY KEY,
	name            VARCHAR(200) NOT NULL DEFAULT '',
	type            VARCHAR(50)  NOT NULL,
	room            VARCHAR(100) NOT NULL DEFAULT '',
	aliases         TEXT         NOT NULL DEFAULT '[]',
	endpoint_on     VARCHAR(500) NOT NULL DEFAULT '',
	endpoint_off    VARCHAR(500) NOT NULL DEFAULT '',
	endpoint_open   VARCHAR(500) NOT NULL DEFAULT '',
	endpoint_close  VARCHAR(500) NOT NULL DEFAULT '',
	endpoint_status VARCHAR(500) NOT NULL DEFAULT '',
	is_active       BOOLEAN      NOT NULL DEFAULT TRUE,
	position        INTEGER      NOT NULL DEFAULT 0,
	created_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const deviceColumns = `device_key, name, type, room, aliases,
	endpoint_on, endpoint_off, endpoint_open, endpoint_close, endpoint_status,
	is_active, position`

const queryUpsert = `
INSERT INTO devices (` + deviceColumns + `)
VALUES (:device_key, :name, :type, :room, :aliases,
	:endpoint_on, :endpoint_off, :endpoint_open, :endpoint_close, :endpoint_status,
	:is_active, :position)
ON CONFLICT (device_key) DO UPDATE SET
	name = excluded.name,
	type = excluded.type,
	room = excluded.room,
	aliases = excluded.aliases,
	endpoint_on = excluded.endpoint_on,
	endpoint_off = excluded.endpoint_off,
	endpoint_open = excluded.endpoint_open,
	endpoint_close = excluded.endpoint_close,
	endpoint_status = excluded.endpoint_status,
	is_active = excluded.is_active,
	position = excluded.position,
	updated_at = CURRENT_TIMESTAMP`

// deviceRow is the devices table row.
type deviceRow struct {
	Key            string `db:"device_key"`
	Name           string `db:"name"`
	Type           string `db:"type"`
	Room           string `db:"room"`
	Aliases        string `db:"aliases"`
	EndpointOn     string `db:"endpoint_on"`
	EndpointOff    string `db:"endpoint_off"`
	EndpointOpen   string `db:"endpoint_open"`
	EndpointClose  string `db:"endpoint_close"`
	EndpointStatus string `db:"endpoint_status"`
	Active         bool   `db:"is_active"`
	Position       int    `db:"position"`
}

func toRow(d message.Device, position int) (deviceRow, error) {
	aliases := d.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	data, err := json.Marshal(aliases)
	if err != nil {
		return deviceRow{}, fmt.Errorf("encoding aliases: %w", err)
	}
	return deviceRow{
		Key:            d.Key,
		Name:           d.Name,
		Type:           string(d.Type),
		Room:           d.Room,
		Aliases:        string(data),
		EndpointOn:     d.Endpoints.On,
		EndpointOff:    d.Endpoints.Off,
		EndpointOpen:   d.Endpoints.Open,
		EndpointClose:  d.Endpoints.Close,
		EndpointStatus: d.Endpoints.Status,
		Active:         d.Active,
		Position:       position,
	}, nil
}

func (r deviceRow) device() (message.Device, error) {
	var aliases []string
	if r.Aliases != "" {
		if err := json.Unmarshal([]byte(r.Aliases), &aliases); err != nil {
			return message.Device{}, fmt.Errorf("device %q: decoding aliases: %w", r.Key, err)
		}
	}
	return message.Device{
		Key:     r.Key,
		Name:    r.Name,
		Type:    message.DeviceType(r.Type),
		Room:    r.Room,
		Aliases: aliases,
		Endpoints: message.Endpoints{
			On:     r.EndpointOn,
			Off:    r.EndpointOff,
			Open:   r.EndpointOpen,
			Close:  r.EndpointClose,
			Status: r.EndpointStatus,
		},
		Active: r.Active,
	}, nil
}

// Repository stores devices in SQLite or PostgreSQL.
type Repository struct {
	db *sqlx.DB
}

// Open connects to the database. driver is "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (*Repository, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// A single connection serializes writers.
		db.SetMaxOpenConns(1)
	}
	return &Repository{db: db}, nil
}

// Close closes the database.
func (r *Repository) Close() error { return r.db.Close() }

// Migrate creates the devices table if needed.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating devices table: %w", err)
	}
	return nil
}

// Load returns the active devices in snapshot order. It implements Source.
func (r *Repository) Load(ctx context.Context) ([]message.Device, error) {
	return r.List(ctx, false)
}

// List returns devices in snapshot order, inactive ones only when asked.
func (r *Repository) List(ctx context.Context, includeInactive bool) ([]message.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY position, device_key`

	var rows []deviceRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	out := make([]message.Device, 0, len(rows))
	for _, row := range rows {
		d, err := row.device()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Get returns one device, active or not.
func (r *Repository) Get(ctx context.Context, key string) (message.Device, error) {
	var row deviceRow
	query := r.db.Rebind(`SELECT ` + deviceColumns + ` FROM devices WHERE device_key = ?`)
	if err := r.db.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return message.Device{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return message.Device{}, fmt.Errorf("getting device %s: %w", key, err)
	}
	return row.device()
}

// Upsert inserts or replaces one device. New devices go last in order.
func (r *Repository) Upsert(ctx context.Context, d message.Device) error {
	if err := Validate([]message.Device{d}); err != nil {
		return err
	}

	position, err := r.positionOf(ctx, d.Key)
	if err != nil {
		return err
	}
	row, err := toRow(d, position)
	if err != nil {
		return err
	}
	if _, err := r.db.NamedExecContext(ctx, queryUpsert, row); err != nil {
		return fmt.Errorf("upserting device %s: %w", d.Key, err)
	}
	return nil
}

func (r *Repository) positionOf(ctx context.Context, key string) (int, error) {
	var position int
	err := r.db.GetContext(ctx, &position, r.db.Rebind(`SELECT position FROM devices WHERE device_key = ?`), key)
	if err == nil {
		return position, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("reading device position: %w", err)
	}
	if err := r.db.GetContext(ctx, &position, `SELECT COALESCE(MAX(position), -1) + 1 FROM devices`); err != nil {
		return 0, fmt.Errorf("reading device position: %w", err)
	}
	return position, nil
}

// Delete removes a device. A soft delete only marks it inactive.
func (r *Repository) Delete(ctx context.Context, key string, soft bool) error {
	query := `DELETE FROM devices WHERE device_key = ?`
	if soft {
		query = `UPDATE devices SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE device_key = ?`
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), key)
	if err != nil {
		return fmt.Errorf("deleting device %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting device %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// Import writes devices in one transaction, replacing existing keys and
// ordering them as given. Nothing is written if any record is invalid.
func (r *Repository) Import(ctx context.Context, devices []message.Device) (int, error) {
	if err := Validate(devices); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, d := range devices {
		row, err := toRow(d, i)
		if err != nil {
			return 0, err
		}
		if _, err := tx.NamedExecContext(ctx, queryUpsert, row); err != nil {
			return 0, fmt.Errorf("importing device %s: %w", d.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}

	slog.Info("devices imported", "count", len(devices))
	return len(devices), nil
}
