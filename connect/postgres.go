package connect

import (
	"fmt"
	"strconv"
	"strings"
)

// PostgresSource describes a table to capture with Debezium.
type PostgresSource struct {
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	Schema     string // defaults to "public"
	Relation   string
	PrimaryKey string
	Columns    []string // captured columns; the primary key is always added
}

func (s PostgresSource) schema() string {
	if s.Schema == "" {
		return "public"
	}
	return s.Schema
}

// ConnectorName returns the name a connector for relation is registered under.
func ConnectorName(relation string) string {
	return relation + "-connector"
}

// Topic returns the topic Debezium writes the source's change events to.
func (s PostgresSource) Topic() string {
	return fmt.Sprintf("%s.%s.%s", s.Relation, s.schema(), s.Relation)
}

// PostgresConnector builds a Debezium Postgres connector for src.
//
// Change events are written as JSON with the new row state unwrapped into the
// payload. Deletes are rewritten into rows flagged with __deleted and
// tombstones are kept.
func PostgresConnector(src PostgresSource) Connector {
	schema := src.schema()
	table := schema + "." + src.Relation

	cfg := map[string]string{
		"connector.class":    "io.debezium.connector.postgresql.PostgresConnector",
		"plugin.name":        "pgoutput",
		"database.hostname":  src.Host,
		"database.port":      strconv.Itoa(src.Port),
		"database.user":      src.User,
		"database.password":  src.Password,
		"database.dbname":    src.DBName,
		"table.include.list": table,
		"slot.name":          "debezium_" + src.Relation,
		"topic.prefix":       src.Relation,

		"value.converter":                "org.apache.kafka.connect.json.JsonConverter",
		"value.converter.schemas.enable": "true",

		"transforms":                            "unwrap",
		"transforms.unwrap.type":                "io.debezium.transforms.ExtractNewRecordState",
		"transforms.unwrap.drop.tombstones":     "false",
		"transforms.unwrap.delete.handling.mode": "rewrite",
	}

	if len(src.Columns) > 0 {
		include := make([]string, 0, len(src.Columns)+1)
		for _, col := range src.Columns {
			include = append(include, table+"."+col)
		}
		if src.PrimaryKey != "" {
			include = append(include, table+"."+src.PrimaryKey)
		}
		cfg["column.include.list"] = strings.Join(include, ",")
	}

	return Connector{Name: ConnectorName(src.Relation), Config: cfg}
}
