package app

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"
)

const maxTracedQueryLength = 512

// openTracedPostgres opens a lib/pq pool whose statements become spans tagged with the
// process component, and whose pool stats are reported as metrics.
func openTracedPostgres(dsn, component string) (*sqlx.DB, error) {
	opts := []otelsql.Option{
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	}
	if name := dbNameFromURL(dsn); name != "" {
		opts = append(opts, otelsql.WithDBName(name))
	}
	if component != "" {
		opts = append(opts, otelsql.WithAttributes(attribute.String("pipeline.component", component)))
	}

	db, err := otelsqlx.Open("postgres", dsn, opts...)
	if err != nil {
		return nil, err
	}
	otelsql.ReportDBStatsMetrics(db.DB, opts...)
	return db, nil
}

// formatDBQueryForTrace collapses whitespace and the row list of multi-row inserts, so an alert
// upsert for a full squad reads as one statement shape instead of hundreds of placeholders.
func formatDBQueryForTrace(query string) string {
	query = collapseValueRows(strings.Join(strings.Fields(query), " "))
	if len(query) <= maxTracedQueryLength {
		return query
	}

	cut := maxTracedQueryLength
	for cut > 0 && !utf8.RuneStart(query[cut]) {
		cut--
	}
	return query[:cut] + "..."
}

func collapseValueRows(query string) string {
	const marker = " VALUES ("
	start := strings.Index(query, marker)
	if start < 0 {
		return query
	}

	rowsStart := start + len(marker) - 1
	rows, end := 0, rowsStart
	for end < len(query) && query[end] == '(' {
		closing := strings.IndexByte(query[end:], ')')
		if closing < 0 {
			return query
		}
		end += closing + 1
		rows++
		if !strings.HasPrefix(query[end:], ", (") {
			break
		}
		end += len(", ")
	}
	if rows < 2 {
		return query
	}

	first := query[rowsStart : rowsStart+strings.IndexByte(query[rowsStart:], ')')+1]
	return query[:rowsStart] + first + " /* x" + strconv.Itoa(rows) + " rows */" + query[end:]
}
