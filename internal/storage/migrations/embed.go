package migrations

import "embed"

// PostgresFS holds the PostgreSQL schema migrations, applied in
// lexical filename order.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the ClickHouse schema migrations, applied in
// lexical filename order.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
