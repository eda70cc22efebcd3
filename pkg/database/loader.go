package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rfm-segments/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open DSN mariadb://, mysql://, postgres:// ou sqlite:// → (driver, DSN natif).
// Un DSN sans schéma est transmis tel quel au driver MySQL.
func Open(dsn string) (*sql.DB, string, error) {
	driver, native, err := resolveDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, native)
	if err != nil {
		return nil, "", err
	}
	if driver == "sqlite" {
		// une seule connexion : ":memory:" n'est pas partagé entre connexions
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, native, nil
}

func resolveDSN(dsn string) (driver, native string, err error) {
	switch {
	case strings.HasPrefix(dsn, "mariadb://"), strings.HasPrefix(dsn, "mysql://"):
		native, err = toMySQLDSN(dsn)
		return "mysql", native, err
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("dsn sqlite sans chemin")
		}
		return "sqlite", path, nil
	case strings.HasPrefix(dsn, "file:"):
		return "sqlite", dsn, nil
	}
	return "mysql", dsn, nil
}

func toMySQLDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	user := ""
	pass := ""
	if u.User != nil {
		user = u.User.Username()
		pw, _ := u.User.Password()
		pass = pw
	}
	host := u.Host
	db := strings.TrimPrefix(u.Path, "/")
	if user == "" || host == "" || db == "" {
		return "", fmt.Errorf("dsn incomplet (user/host/db)")
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
		user, pass, host, db), nil
}

// LoadTable lit toute la table en Table (lecture seule, valeurs converties en texte).
// Les dates renvoyées par le driver sont formatées "2006-01-02 15:04:05" en UTC.
func LoadTable(ctx context.Context, db *sql.DB, tableName string) (models.Table, error) {
	if !tableNameRe.MatchString(tableName) {
		return models.Table{}, fmt.Errorf("table invalide: %q", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s`, tableName))
	if err != nil {
		return models.Table{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return models.Table{}, err
	}
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = strings.TrimSpace(c)
	}
	t := models.Table{Header: header}

	values := make([]any, len(cols))
	pointers := make([]any, len(cols))
	for i := range values {
		pointers[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return models.Table{}, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return models.Table{}, err
	}

	log.Printf("[DEBUG] table %s: %d colonnes, %d lignes lues", tableName, len(cols), len(t.Rows))
	return t, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.UTC().Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// TableSource charge les transactions depuis une table SQL.
type TableSource struct {
	DB    *sql.DB
	Table string
}

// Name identifie la source dans les logs.
func (s TableSource) Name() string { return "table " + s.Table }

// Load lit la table.
func (s TableSource) Load(ctx context.Context) (models.Table, error) {
	return LoadTable(ctx, s.DB, s.Table)
}
