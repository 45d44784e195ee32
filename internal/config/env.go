package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DBEnv holds the discrete DB_* environment variables used when a pipeline
// does not carry a DSN.
type DBEnv struct {
	User     string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     string `envconfig:"PORT"`
	Name     string `envconfig:"NAME"`
	// DSN wins over the discrete fields when set.
	DSN string `envconfig:"DSN"`
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are given) into the process environment. Variables already set are kept.
// Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// DBFromEnv reads DB_USER, DB_PASSWORD, DB_HOST, DB_PORT, DB_NAME and DB_DSN.
func DBFromEnv() (DBEnv, error) {
	var e DBEnv
	if err := envconfig.Process("DB", &e); err != nil {
		return DBEnv{}, fmt.Errorf("db env: %w", err)
	}
	return e, nil
}

// DSNFor renders a connection string for storage kind.
func (e DBEnv) DSNFor(kind string) (string, error) {
	if e.DSN != "" {
		return e.DSN, nil
	}
	if e.Name == "" {
		return "", fmt.Errorf("db env: DB_NAME is required to build a %s DSN", kind)
	}
	switch kind {
	case "postgres":
		u := url.URL{
			Scheme: "postgres",
			User:   e.userInfo(),
			Host:   e.hostPort("5432"),
			Path:   "/" + e.Name,
		}
		return u.String(), nil
	case "mssql":
		u := url.URL{
			Scheme:   "sqlserver",
			User:     e.userInfo(),
			Host:     e.hostPort("1433"),
			RawQuery: url.Values{"database": {e.Name}}.Encode(),
		}
		return u.String(), nil
	case "mysql":
		c := mysql.NewConfig()
		c.User = e.User
		c.Passwd = e.Password
		c.Net = "tcp"
		c.Addr = e.hostPort("3306")
		c.DBName = e.Name
		c.ParseTime = true
		return c.FormatDSN(), nil
	case "sqlite":
		return e.Name, nil
	}
	return "", fmt.Errorf("db env: unsupported storage.kind=%s", kind)
}

func (e DBEnv) userInfo() *url.Userinfo {
	if e.User == "" {
		return nil
	}
	if e.Password == "" {
		return url.User(e.User)
	}
	return url.UserPassword(e.User, e.Password)
}

func (e DBEnv) hostPort(defPort string) string {
	port := e.Port
	if port == "" {
		port = defPort
	}
	return net.JoinHostPort(e.Host, port)
}

// ResolveDSN returns the pipeline DSN, or one built from the environment
// when the pipeline leaves it empty.
func ResolveDSN(p Pipeline) (string, error) {
	if dsn := strings.TrimSpace(p.Storage.DB.DSN); dsn != "" {
		return dsn, nil
	}
	e, err := DBFromEnv()
	if err != nil {
		return "", err
	}
	return e.DSNFor(p.Storage.Kind)
}

// RedactDSN hides the password of URL-style DSNs for logging.
func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
