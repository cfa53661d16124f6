package recipestore

import _ "embed"

//go:embed schema.sql
var Schema string

//go:embed schema_sqlite.sql
var SchemaSQLite string
