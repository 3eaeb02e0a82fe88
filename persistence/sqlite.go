/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package persistence provides SQLite-backed at-rest storage for
// riskengine.Snapshot, so an engine can be warm-started from a previous
// run: one sql.DB, a handful of prepared statements reused across batch
// operations, and a single transaction per save.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"prime-risk-engine/counterstore"
	"prime-risk-engine/riskengine"
	"prime-risk-engine/riskevents"
	"prime-risk-engine/riskrules"
	"prime-risk-engine/window"
)

// SQLiteStore is SQLite-backed storage for a single engine's Snapshot.
// Prepared statements are initialized once at Open and reused for every
// SaveSnapshot, avoiding SQL parsing overhead on each insert.
type SQLiteStore struct {
	db *sql.DB

	stmtCounter   *sql.Stmt
	stmtSuspended *sql.Stmt
	stmtWindow    *sql.Stmt
}

// ErrUnsupportedSchemaVersion is returned by LoadSnapshot when the
// on-disk schema_version row is newer than this binary understands.
var ErrUnsupportedSchemaVersion = errors.New("persistence: unsupported schema version")

// Open creates or opens a SQLite database at path with WAL journaling,
// so a concurrent reader never blocks a snapshot write.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("persistence: failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("persistence: failed to initialize schema: %w", err)
	}

	if s.stmtCounter, err = db.Prepare(insertCounterQuery); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("persistence: failed to prepare counter statement: %w", err)
	}
	if s.stmtSuspended, err = db.Prepare(insertSuspendedQuery); err != nil {
		_ = s.stmtCounter.Close()
		_ = db.Close()
		return nil, fmt.Errorf("persistence: failed to prepare suspended statement: %w", err)
	}
	if s.stmtWindow, err = db.Prepare(insertWindowQuery); err != nil {
		_ = s.stmtCounter.Close()
		_ = s.stmtSuspended.Close()
		_ = db.Close()
		return nil, fmt.Errorf("persistence: failed to prepare window statement: %w", err)
	}

	log.Printf("persistence: SQLite snapshot store opened at %s", path)
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s.stmtCounter != nil {
		_ = s.stmtCounter.Close()
	}
	if s.stmtSuspended != nil {
		_ = s.stmtSuspended.Close()
	}
	if s.stmtWindow != nil {
		_ = s.stmtWindow.Close()
	}
	return s.db.Close()
}

const (
	createSchemaVersionTable = `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`
	createCounterTable       = `CREATE TABLE IF NOT EXISTS counter_entries (
		dim_key TEXT NOT NULL, day_id INTEGER NOT NULL, metric INTEGER NOT NULL,
		is_float INTEGER NOT NULL, int_val INTEGER NOT NULL, flt_val REAL NOT NULL
	)`
	createSuspendedTable = `CREATE TABLE IF NOT EXISTS rule_suspended (
		rule_id TEXT NOT NULL, dim_key TEXT NOT NULL, suspended INTEGER NOT NULL
	)`
	createWindowTable = `CREATE TABLE IF NOT EXISTS rule_window (
		rule_id TEXT NOT NULL, dim_key TEXT NOT NULL, slot INTEGER NOT NULL,
		second INTEGER NOT NULL, count INTEGER NOT NULL
	)`

	insertCounterQuery   = `INSERT INTO counter_entries (dim_key, day_id, metric, is_float, int_val, flt_val) VALUES (?, ?, ?, ?, ?, ?)`
	insertSuspendedQuery = `INSERT INTO rule_suspended (rule_id, dim_key, suspended) VALUES (?, ?, ?)`
	insertWindowQuery    = `INSERT INTO rule_window (rule_id, dim_key, slot, second, count) VALUES (?, ?, ?, ?, ?)`
)

func (s *SQLiteStore) initSchema() error {
	for _, stmt := range []string{createSchemaVersionTable, createCounterTable, createSuspendedTable, createWindowTable} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot clears and rewrites every table in one transaction.
// tx.Stmt() binds each already-prepared statement to the transaction
// context.
func (s *SQLiteStore) SaveSnapshot(snap riskengine.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("persistence: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op if already committed

	for _, table := range []string{"schema_version", "counter_entries", "rule_suspended", "rule_window"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("persistence: clearing %s: %w", table, err)
		}
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", snap.SchemaVersion); err != nil {
		return fmt.Errorf("persistence: writing schema version: %w", err)
	}

	for _, e := range snap.Counters {
		intVal, fltVal := e.IntVal, e.FltVal
		if _, err := tx.Stmt(s.stmtCounter).Exec(e.Key.String(), e.DayID, int(e.Metric), boolToInt(e.IsFloat), intVal, fltVal); err != nil {
			return fmt.Errorf("persistence: writing counter entry: %w", err)
		}
	}
	for _, rs := range snap.Rules {
		for _, se := range rs.Suspended {
			if _, err := tx.Stmt(s.stmtSuspended).Exec(rs.RuleID, se.Key.String(), boolToInt(se.Suspended)); err != nil {
				return fmt.Errorf("persistence: writing suspended entry: %w", err)
			}
		}
		for _, we := range rs.Window {
			if _, err := tx.Stmt(s.stmtWindow).Exec(rs.RuleID, we.Key.String(), we.Slot, we.Second, we.Count); err != nil {
				return fmt.Errorf("persistence: writing window entry: %w", err)
			}
		}
	}

	return tx.Commit()
}

// LoadSnapshot restores a riskengine.Snapshot from the database.
// Restoration is parameter-tolerant: missing rows simply yield zero
// values; a schema version newer than riskengine.CurrentSchemaVersion is
// rejected outright.
func (s *SQLiteStore) LoadSnapshot() (riskengine.Snapshot, error) {
	var snap riskengine.Snapshot

	row := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&snap.SchemaVersion); err != nil {
		if err == sql.ErrNoRows {
			snap.SchemaVersion = riskengine.CurrentSchemaVersion
			return snap, nil
		}
		return snap, fmt.Errorf("persistence: reading schema version: %w", err)
	}
	if snap.SchemaVersion > riskengine.CurrentSchemaVersion {
		return riskengine.Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedSchemaVersion, snap.SchemaVersion)
	}

	counterRows, err := s.db.Query("SELECT dim_key, day_id, metric, is_float, int_val, flt_val FROM counter_entries")
	if err != nil {
		return snap, fmt.Errorf("persistence: reading counter entries: %w", err)
	}
	for counterRows.Next() {
		var dimKeyStr string
		var e counterstore.Entry
		var isFloat int
		var metric int
		if err := counterRows.Scan(&dimKeyStr, &e.DayID, &metric, &isFloat, &e.IntVal, &e.FltVal); err != nil {
			_ = counterRows.Close()
			return snap, fmt.Errorf("persistence: scanning counter entry: %w", err)
		}
		e.Key = parseDimKey(dimKeyStr)
		e.Metric = riskevents.Metric(metric)
		e.IsFloat = isFloat != 0
		snap.Counters = append(snap.Counters, e)
	}
	_ = counterRows.Close()

	suspendedByRule := make(map[string][]riskrules.SuspendedEntry)
	suspendedRows, err := s.db.Query("SELECT rule_id, dim_key, suspended FROM rule_suspended")
	if err != nil {
		return snap, fmt.Errorf("persistence: reading suspended entries: %w", err)
	}
	for suspendedRows.Next() {
		var ruleID, dimKeyStr string
		var suspended int
		if err := suspendedRows.Scan(&ruleID, &dimKeyStr, &suspended); err != nil {
			_ = suspendedRows.Close()
			return snap, fmt.Errorf("persistence: scanning suspended entry: %w", err)
		}
		suspendedByRule[ruleID] = append(suspendedByRule[ruleID], riskrules.SuspendedEntry{
			Key:       parseDimKey(dimKeyStr),
			Suspended: suspended != 0,
		})
	}
	_ = suspendedRows.Close()

	windowByRule := make(map[string][]window.Entry[riskevents.DimKey])
	windowRows, err := s.db.Query("SELECT rule_id, dim_key, slot, second, count FROM rule_window")
	if err != nil {
		return snap, fmt.Errorf("persistence: reading window entries: %w", err)
	}
	for windowRows.Next() {
		var ruleID, dimKeyStr string
		var we window.Entry[riskevents.DimKey]
		if err := windowRows.Scan(&ruleID, &dimKeyStr, &we.Slot, &we.Second, &we.Count); err != nil {
			_ = windowRows.Close()
			return snap, fmt.Errorf("persistence: scanning window entry: %w", err)
		}
		we.Key = parseDimKey(dimKeyStr)
		windowByRule[ruleID] = append(windowByRule[ruleID], we)
	}
	_ = windowRows.Close()

	ruleIDs := make(map[string]bool)
	for id := range suspendedByRule {
		ruleIDs[id] = true
	}
	for id := range windowByRule {
		ruleIDs[id] = true
	}
	for id := range ruleIDs {
		snap.Rules = append(snap.Rules, riskengine.RuleState{
			RuleID:    id,
			Suspended: suspendedByRule[id],
			Window:    windowByRule[id],
		})
	}

	return snap, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseDimKey reconstructs a DimKey from the "name=value,name=value"
// form DimKey.String renders. It is the inverse used only at the
// persistence boundary; nothing in the hot path depends on it.
func parseDimKey(s string) riskevents.DimKey {
	if s == "" {
		return riskevents.DimKey{}
	}
	parts := strings.Split(s, ",")
	comps := make([]riskevents.DimComponent, 0, len(parts))
	for _, p := range parts {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		comps = append(comps, riskevents.DimComponent{Name: riskevents.DimName(name), Value: value})
	}
	return riskevents.NewDimKey(comps...)
}
