package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Seed carries the values Migrate inserts into an empty database.
type Seed struct {
	AdminUsername     string
	AdminPasswordHash string
	AdminFullName     string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS RoomTypes (
		id INT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		base_price DECIMAL(10, 2) NOT NULL,
		capacity INT NOT NULL,
		CONSTRAINT chk_roomtypes_price CHECK (base_price >= 0),
		CONSTRAINT chk_roomtypes_capacity CHECK (capacity > 0)
	)`,
	`CREATE TABLE IF NOT EXISTS Rooms (
		id INT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		room_number VARCHAR(255) NOT NULL UNIQUE,
		room_type_id INT UNSIGNED NOT NULL,
		status ENUM('Available', 'Occupied', 'Cleaning', 'Maintenance') NOT NULL DEFAULT 'Available',
		FOREIGN KEY (room_type_id) REFERENCES RoomTypes(id)
	)`,
	`CREATE TABLE IF NOT EXISTS Bookings (
		id INT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		guest_name VARCHAR(255) NOT NULL,
		room_id INT UNSIGNED NOT NULL,
		check_in_date DATE NOT NULL,
		check_out_date DATE NOT NULL,
		total_price DECIMAL(10, 2) NOT NULL,
		status ENUM('Confirmed', 'Checked_In', 'Checked_Out', 'Cancelled') NOT NULL DEFAULT 'Confirmed',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (room_id) REFERENCES Rooms(id),
		INDEX idx_bookings_room_window (room_id, status, check_in_date, check_out_date),
		CONSTRAINT chk_bookings_range CHECK (check_out_date > check_in_date),
		CONSTRAINT chk_bookings_price CHECK (total_price > 0)
	)`,
	`CREATE TABLE IF NOT EXISTS Staff (
		id INT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		full_name VARCHAR(255) NOT NULL,
		role ENUM('manager', 'receptionist') NOT NULL DEFAULT 'receptionist',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS Guests (
		id INT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		full_name VARCHAR(255) NOT NULL,
		phone VARCHAR(20),
		email VARCHAR(255),
		id_card VARCHAR(20),
		nationality VARCHAR(100),
		address TEXT,
		notes TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

type seedRoomType struct {
	name     string
	price    string
	capacity int
	rooms    []string
}

var seedInventory = []seedRoomType{
	{"Standard", "1500.00", 2, []string{"101", "102", "103"}},
	{"Deluxe", "2500.00", 3, []string{"201", "202"}},
	{"Suite", "4000.00", 4, []string{"301"}},
}

// Migrate creates missing tables and seeds an empty database.  It is
// safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, seed Seed) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", classify(err))
		}
	}

	cl := NewCluster(db, nil, nil)
	return cl.Tx(ctx, func(tx *sql.Tx) error {
		if err := seedRooms(ctx, tx); err != nil {
			return err
		}
		return seedAdmin(ctx, tx, seed)
	})
}

func seedRooms(ctx context.Context, tx *sql.Tx) error {
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM RoomTypes").Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, rt := range seedInventory {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO RoomTypes (name, base_price, capacity) VALUES (?, ?, ?)",
			rt.name, rt.price, rt.capacity)
		if err != nil {
			return fmt.Errorf("seed room type %s: %w", rt.name, err)
		}
		typeID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, num := range rt.rooms {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO Rooms (room_number, room_type_id, status) VALUES (?, ?, 'Available')",
				num, typeID); err != nil {
				return fmt.Errorf("seed room %s: %w", num, err)
			}
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, tx *sql.Tx, seed Seed) error {
	if seed.AdminPasswordHash == "" {
		return nil
	}
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM Staff").Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	username := seed.AdminUsername
	if username == "" {
		username = "admin"
	}
	fullName := seed.AdminFullName
	if fullName == "" {
		fullName = "Hotel Manager"
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO Staff (username, password_hash, full_name, role) VALUES (?, ?, ?, 'manager')",
		username, seed.AdminPasswordHash, fullName)
	return err
}
