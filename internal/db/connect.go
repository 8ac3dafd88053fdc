// Package db manages connections to the Switchboard relational store.
package db

import (
	"fmt"
	"strings"

	"github.com/zulandar/switchboard/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormConfig is the shared GORM configuration. TranslateError maps driver
// duplicate-key and foreign-key violations onto gorm's portable sentinels,
// which the errs package classifies into the operation taxonomy.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
}

// DSN builds the driver-specific connection string.
func DSN(cfg config.DatabaseConfig) string {
	switch cfg.Driver {
	case "mysql":
		cred := cfg.User
		if cfg.Password != "" {
			cred += ":" + cfg.Password
		}
		if cred == "" {
			cred = "root"
		}
		return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", cred, cfg.Host, cfg.Port, cfg.Name)
	case "sqlite":
		return cfg.Path + "?_foreign_keys=on"
	default: // postgres
		parts := []string{
			fmt.Sprintf("host=%s", cfg.Host),
			fmt.Sprintf("port=%d", cfg.Port),
			fmt.Sprintf("dbname=%s", cfg.Name),
			"sslmode=disable",
		}
		if cfg.User != "" {
			parts = append(parts, fmt.Sprintf("user=%s", cfg.User))
		}
		if cfg.Password != "" {
			parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
		}
		return strings.Join(parts, " ")
	}
}

// Connect opens a GORM connection to the configured database.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := DSN(cfg)

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		dialector = postgres.Open(dsn)
	}

	gdb, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("db: connect %s: %w", cfg.Driver, err)
	}
	return gdb, nil
}

// ConnectAdmin opens a connection without selecting the application
// database, used for CREATE/DROP DATABASE operations. Not supported for
// sqlite, where the database is just a file.
func ConnectAdmin(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "mysql":
		admin := cfg
		admin.Name = ""
		gdb, err := gorm.Open(mysql.Open(DSN(admin)), gormConfig())
		if err != nil {
			return nil, fmt.Errorf("db: admin connect %s:%d: %w", cfg.Host, cfg.Port, err)
		}
		return gdb, nil
	case "postgres":
		admin := cfg
		admin.Name = "postgres"
		gdb, err := gorm.Open(postgres.Open(DSN(admin)), gormConfig())
		if err != nil {
			return nil, fmt.Errorf("db: admin connect %s:%d: %w", cfg.Host, cfg.Port, err)
		}
		return gdb, nil
	default:
		return nil, fmt.Errorf("db: admin connections are not supported for driver %q", cfg.Driver)
	}
}

// CreateDatabase creates the named database if it doesn't already exist.
func CreateDatabase(adminDB *gorm.DB, driver, name string) error {
	switch driver {
	case "mysql":
		if err := adminDB.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)).Error; err != nil {
			return fmt.Errorf("db: create database %s: %w", name, err)
		}
	case "postgres":
		var count int64
		if err := adminDB.Raw("SELECT count(*) FROM pg_database WHERE datname = ?", name).Scan(&count).Error; err != nil {
			return fmt.Errorf("db: check database %s: %w", name, err)
		}
		if count == 0 {
			if err := adminDB.Exec(fmt.Sprintf(`CREATE DATABASE "%s"`, name)).Error; err != nil {
				return fmt.Errorf("db: create database %s: %w", name, err)
			}
		}
	default:
		return fmt.Errorf("db: create database is not supported for driver %q", driver)
	}
	return nil
}

// DropDatabase drops the named database if it exists.
func DropDatabase(adminDB *gorm.DB, driver, name string) error {
	var sql string
	switch driver {
	case "mysql":
		sql = fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", name)
	case "postgres":
		sql = fmt.Sprintf(`DROP DATABASE IF EXISTS "%s"`, name)
	default:
		return fmt.Errorf("db: drop database is not supported for driver %q", driver)
	}
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: drop database %s: %w", name, err)
	}
	return nil
}
