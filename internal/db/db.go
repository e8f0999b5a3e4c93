// Package db persists finished package records to the station's local
// sqlite database and exposes the admin debugging surface over it.
package db

import (
	"compress/gzip"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/parcel.station/internal/fusion"
	"github.com/banshee-data/parcel.station/internal/monitoring"
)

type DB struct {
	*sql.DB

	path string
}

// NewDB opens (creating if necessary) the station database at path and
// ensures the base schema exists.
func NewDB(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = sqldb.Exec(`
		CREATE TABLE IF NOT EXISTS packages (
			id               TEXT PRIMARY KEY,
			barcode          TEXT,
			create_time      TIMESTAMP,
			weight_kg        DOUBLE,
			length_cm        DOUBLE,
			width_cm         DOUBLE,
			height_cm        DOUBLE,
			volume_cm3       DOUBLE,
			pallet_name      TEXT,
			pallet_tare_kg   DOUBLE,
			image_path       TEXT,
			status           TEXT,
			error_message    TEXT,
			timestamp        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS packages_create_time ON packages (create_time);
		CREATE INDEX IF NOT EXISTS packages_barcode ON packages (barcode);
	`)
	if err != nil {
		sqldb.Close()
		return nil, err
	}

	return &DB{DB: sqldb, path: path}, nil
}

// SaveRecord appends a finished package record. Records are append-only;
// a re-scan of the same physical package produces a new row with its own ID.
func (db *DB) SaveRecord(ctx context.Context, r *fusion.PackageRecord) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO packages (
			id, barcode, create_time, weight_kg, length_cm, width_cm,
			height_cm, volume_cm3, pallet_name, pallet_tare_kg,
			image_path, status, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Barcode, r.CreateTime, r.WeightKg, r.LengthCm, r.WidthCm,
		r.HeightCm, r.VolumeCm3, r.Pallet.Name, r.Pallet.TareWeightKg,
		r.ImagePath, string(r.Status), r.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert package %s: %w", r.ID, err)
	}
	return nil
}

// Packages returns the most recent records, newest first. A limit of zero or
// less falls back to 100.
func (db *DB) Packages(ctx context.Context, limit int) ([]fusion.PackageRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, barcode, create_time, weight_kg, length_cm, width_cm,
			height_cm, volume_cm3, pallet_name, pallet_tare_kg,
			image_path, status, error_message
		FROM packages ORDER BY create_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packages []fusion.PackageRecord
	for rows.Next() {
		var (
			r      fusion.PackageRecord
			status string
		)
		if err := rows.Scan(
			&r.ID,
			&r.Barcode,
			&r.CreateTime,
			&r.WeightKg,
			&r.LengthCm,
			&r.WidthCm,
			&r.HeightCm,
			&r.VolumeCm3,
			&r.Pallet.Name,
			&r.Pallet.TareWeightKg,
			&r.ImagePath,
			&status,
			&r.ErrorMessage,
		); err != nil {
			return nil, err
		}
		r.Status = fusion.Status(status)
		packages = append(packages, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return packages, nil
}

// PackageByBarcode returns the most recent record for a barcode, or
// sql.ErrNoRows when the barcode has never been processed.
func (db *DB) PackageByBarcode(ctx context.Context, barcode string) (fusion.PackageRecord, error) {
	var (
		r      fusion.PackageRecord
		status string
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, barcode, create_time, weight_kg, length_cm, width_cm,
			height_cm, volume_cm3, pallet_name, pallet_tare_kg,
			image_path, status, error_message
		FROM packages WHERE barcode = ? ORDER BY create_time DESC LIMIT 1`,
		barcode,
	).Scan(
		&r.ID,
		&r.Barcode,
		&r.CreateTime,
		&r.WeightKg,
		&r.LengthCm,
		&r.WidthCm,
		&r.HeightCm,
		&r.VolumeCm3,
		&r.Pallet.Name,
		&r.Pallet.TareWeightKg,
		&r.ImagePath,
		&status,
		&r.ErrorMessage,
	)
	if err != nil {
		return fusion.PackageRecord{}, err
	}
	r.Status = fusion.Status(status)
	return r, nil
}

// StatusCounts returns the number of records per terminal status.
func (db *DB) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM packages GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// AttachAdminRoutes mounts the live-SQL and backup debug handlers.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Station DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a gzipped backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := fmt.Sprintf("backup-%d.db", time.Now().Unix())
		if _, err := db.Exec(`VACUUM INTO ?`, backupPath); err != nil {
			http.Error(w, fmt.Sprintf("backup failed: %v", err), http.StatusInternalServerError)
			return
		}
		defer os.Remove(backupPath)

		f, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to open backup: %v", err), http.StatusInternalServerError)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", "application/gzip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", backupPath))
		gz := gzip.NewWriter(w)
		defer gz.Close()
		if _, err := io.Copy(gz, f); err != nil {
			monitoring.Logf("db: backup download aborted: %v", err)
		}
	}))

	return nil
}
