package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/config"
)

// OpenSource prepares a handle to the remote operational store. The handle is
// lazy: nothing is dialed until the first query, so an offline source does not
// stop the process from serving the local replica.
func OpenSource(cfg config.SourceConnection, log *zap.Logger) (*Database, error) {
	dsn, err := SourceDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open source connection: %w", err)
	}

	// Sync reads one table at a time.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	log.Info("Configured source database",
		zap.String("driver", cfg.Driver),
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
	)

	return &Database{DB: db, Driver: cfg.Driver}, nil
}

func SourceDSN(cfg config.SourceConnection) (string, error) {
	switch cfg.Driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		mc.DBName = cfg.Database
		mc.ParseTime = true
		mc.Timeout = cfg.Timeout
		mc.ReadTimeout = cfg.Timeout
		if cfg.Charset != "" {
			mc.Params = map[string]string{"charset": cfg.Charset}
		}
		return mc.FormatDSN(), nil

	case "sqlserver":
		q := url.Values{}
		q.Set("database", cfg.Database)
		if cfg.Timeout > 0 {
			q.Set("dial timeout", strconv.Itoa(int(cfg.Timeout.Seconds())))
		}
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	}
	return "", fmt.Errorf("unsupported source driver %q", cfg.Driver)
}
