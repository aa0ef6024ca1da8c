package db

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/conforma/remitos-api/internal/config"
	"github.com/go-sql-driver/mysql"
)

const (
	DriverSQLServer = "sqlserver"
	DriverMySQL     = "mysql"
	DriverPostgres  = "postgres"
)

// sqlDriverName maps a configured dialect to the database/sql driver name.
func sqlDriverName(dialect string) (string, error) {
	switch dialect {
	case DriverSQLServer:
		return "sqlserver", nil
	case DriverMySQL:
		return "mysql", nil
	case DriverPostgres:
		return "pgx", nil
	}
	return "", fmt.Errorf("db: unsupported driver %q", dialect)
}

// DSN returns c.DSN verbatim or builds one for c.Driver.
func DSN(c config.DB) (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	switch c.Driver {
	case DriverSQLServer:
		return sqlServerDSN(c), nil
	case DriverMySQL:
		return mysqlDSN(c), nil
	case DriverPostgres:
		return postgresDSN(c), nil
	}
	return "", fmt.Errorf("db: unsupported driver %q", c.Driver)
}

func hostPort(host string, port, def int) string {
	if port <= 0 {
		port = def
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func seconds(d time.Duration) string {
	return strconv.Itoa(int(d / time.Second))
}

// sqlServerDSN uses DOMAIN\user when a domain is configured, which makes
// go-mssqldb negotiate NTLM instead of a SQL login.
func sqlServerDSN(c config.DB) string {
	user := c.User
	if c.Domain != "" {
		user = c.Domain + `\` + c.User
	}
	q := url.Values{}
	q.Set("database", c.Name)
	q.Set("encrypt", strconv.FormatBool(c.Encrypt))
	q.Set("TrustServerCertificate", strconv.FormatBool(c.TrustServerCert))
	q.Set("app name", "remitos-api")
	if c.ConnectTimeout > 0 {
		q.Set("connection timeout", seconds(c.ConnectTimeout))
		q.Set("dial timeout", seconds(c.ConnectTimeout))
	}
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(user, c.Password),
		Host:     hostPort(c.Host, c.Port, 1433),
		RawQuery: q.Encode(),
	}
	return u.String()
}

func mysqlDSN(c config.DB) string {
	m := mysql.NewConfig()
	m.User = c.User
	m.Passwd = c.Password
	m.Net = "tcp"
	m.Addr = hostPort(c.Host, c.Port, 3306)
	m.DBName = c.Name
	m.ParseTime = true
	m.Timeout = c.ConnectTimeout
	if c.Encrypt {
		m.TLSConfig = "true"
		if c.TrustServerCert {
			m.TLSConfig = "skip-verify"
		}
	}
	return m.FormatDSN()
}

func postgresDSN(c config.DB) string {
	mode := "disable"
	if c.Encrypt {
		mode = "verify-full"
		if c.TrustServerCert {
			mode = "require"
		}
	}
	q := url.Values{}
	q.Set("sslmode", mode)
	q.Set("application_name", "remitos-api")
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", seconds(c.ConnectTimeout))
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     hostPort(c.Host, c.Port, 5432),
		Path:     "/" + c.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
