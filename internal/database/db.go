package database

import (
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Target identifies one MySQL server of the cluster.
type Target struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Pool holds connection pool limits for one target.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds the driver connection string for the target.
func (t Target) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = t.User
	cfg.Passwd = t.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(t.Host, t.Port)
	cfg.DBName = t.Name
	// parseTime=true -> DATE/DATETIME -> time.Time | loc=UTC keeps dates stable
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Timeout = 5 * time.Second
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open creates a connection pool for the target.  It does not contact
// the server; Connect verifies reachability.
func Open(t Target, p Pool) (*sql.DB, error) {
	db, err := sql.Open("mysql", t.DSN())
	if err != nil {
		return nil, err
	}
	if p.MaxOpenConns <= 0 {
		p.MaxOpenConns = 10
	}
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = p.MaxOpenConns
	}
	if p.ConnMaxLifetime <= 0 {
		p.ConnMaxLifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(p.MaxOpenConns)
	db.SetMaxIdleConns(p.MaxIdleConns)
	db.SetConnMaxLifetime(p.ConnMaxLifetime)
	return db, nil
}
