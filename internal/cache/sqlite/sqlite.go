package sqlite

import (
	"fmt"
	"time"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/util"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/report"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	_ "github.com/mattn/go-sqlite3"
)

const TABLE_NAME = "psu_deployment_outcomes"

// Record is a single row of the outcome history.
type Record struct {
	RunID          string    `db:"run_id" json:"run_id"`
	Server         string    `db:"server" json:"server"`
	Timestamp      time.Time `db:"timestamp" json:"timestamp"`
	DeviceID       int       `db:"device_id" json:"device_id"`
	DeviceName     string    `db:"device_name" json:"device_name"`
	Vendor         string    `db:"vendor" json:"vendor"`
	Model          string    `db:"model" json:"model"`
	Group          string    `db:"device_group" json:"group"`
	PsusFound      int       `db:"psus_found" json:"psus_found"`
	SensorsCreated int       `db:"sensors_created" json:"sensors_created"`
	SensorIDs      string    `db:"sensor_ids" json:"sensor_ids"`
	Status         string    `db:"status" json:"status"`
	Message        string    `db:"message" json:"message"`
}

func NewRecord(runID uuid.UUID, server string, o report.Outcome) Record {
	return Record{
		RunID:          runID.String(),
		Server:         server,
		Timestamp:      o.Timestamp,
		DeviceID:       o.DeviceID,
		DeviceName:     o.DeviceName,
		Vendor:         o.Vendor,
		Model:          o.Model,
		Group:          o.Group,
		PsusFound:      o.PsusFound,
		SensorsCreated: o.SensorsCreated,
		SensorIDs:      report.JoinIDs(o.SensorIDs),
		Status:         string(o.Status),
		Message:        o.Message,
	}
}

func (r Record) Outcome() report.Outcome {
	return report.Outcome{
		Timestamp:      r.Timestamp,
		DeviceID:       r.DeviceID,
		DeviceName:     r.DeviceName,
		Vendor:         r.Vendor,
		Model:          r.Model,
		Group:          r.Group,
		PsusFound:      r.PsusFound,
		SensorsCreated: r.SensorsCreated,
		SensorIDs:      report.ParseIDs(r.SensorIDs),
		Status:         report.Status(r.Status),
		Message:        r.Message,
	}
}

func CreateOutcomesIfNotExists(path string) (*sqlx.DB, error) {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		run_id 			TEXT NOT NULL,
		server 			TEXT NOT NULL,
		timestamp 		TIMESTAMP,
		device_id 		INTEGER NOT NULL,
		device_name 	TEXT,
		vendor 			TEXT,
		model 			TEXT,
		device_group 	TEXT,
		psus_found 		INTEGER,
		sensors_created INTEGER,
		sensor_ids 		TEXT,
		status 			TEXT,
		message 		TEXT,
		PRIMARY KEY (run_id, device_id)
	);
	`, TABLE_NAME)
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %v", err)
	}
	return db, nil
}

func InsertOutcomes(path string, runID uuid.UUID, server string, outcomes ...report.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	// create database if it doesn't already exist
	db, err := CreateOutcomesIfNotExists(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	sql := fmt.Sprintf(`INSERT OR REPLACE INTO %s (run_id, server, timestamp, device_id, device_name, vendor, model, device_group, psus_found, sensors_created, sensor_ids, status, message)
	VALUES (:run_id, :server, :timestamp, :device_id, :device_name, :vendor, :model, :device_group, :psus_found, :sensors_created, :sensor_ids, :status, :message);`, TABLE_NAME)
	for _, o := range outcomes {
		record := NewRecord(runID, server, o)
		if _, err := tx.NamedExec(sql, &record); err != nil {
			log.Warn().Err(err).Int("device", o.DeviceID).Msg("failed to execute transaction")
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

func DeleteRun(path string, runID uuid.UUID) error {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(fmt.Sprintf("DELETE FROM %s WHERE run_id=?;", TABLE_NAME), runID.String())
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %v", runID, err)
	}
	return nil
}

// GetRecords returns the stored history, newest first. An empty server
// returns the history of every server.
func GetRecords(path string, server string) ([]Record, error) {
	// check if path exists first to prevent creating the database
	_, exists := util.PathExists(path)
	if !exists {
		return nil, fmt.Errorf("no file found")
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	results := []Record{}
	query := fmt.Sprintf("SELECT * FROM %s", TABLE_NAME)
	args := []any{}
	if server != "" {
		query += " WHERE server=?"
		args = append(args, server)
	}
	query += " ORDER BY timestamp DESC, device_id ASC;"
	if err := db.Select(&results, query, args...); err != nil {
		return nil, fmt.Errorf("failed to retrieve outcomes: %v", err)
	}
	return results, nil
}

func GetOutcomes(path string, server string) ([]report.Outcome, error) {
	records, err := GetRecords(path, server)
	if err != nil {
		return nil, err
	}
	outcomes := make([]report.Outcome, 0, len(records))
	for _, r := range records {
		outcomes = append(outcomes, r.Outcome())
	}
	return outcomes, nil
}

// OutcomeCache is the sqlite implementation of the outcome history for a
// single PRTG server.
type OutcomeCache struct {
	Path   string
	Server string
}

func (c OutcomeCache) Insert(runID uuid.UUID, outcomes ...report.Outcome) error {
	return InsertOutcomes(c.Path, runID, c.Server, outcomes...)
}

func (c OutcomeCache) Delete(runID uuid.UUID) error {
	return DeleteRun(c.Path, runID)
}

func (c OutcomeCache) Get() ([]report.Outcome, error) {
	return GetOutcomes(c.Path, c.Server)
}
