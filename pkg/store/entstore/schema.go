package entstore

import (
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	tableAdFormats  = "ad_formats"
	columnID        = "id"
	columnName      = "name"
	columnEvents    = "events"
	columnUpdatedAt = "updated_at"
)

var (
	// adFormatsColumns holds the columns for the "ad_formats" table.
	adFormatsColumns = []*schema.Column{
		{Name: columnID, Type: field.TypeInt, Increment: true},
		{Name: columnName, Type: field.TypeString},
		// Ordered list of {code,label}; JSONB on Postgres, TEXT on SQLite.
		{Name: columnEvents, Type: field.TypeJSON},
		{Name: columnUpdatedAt, Type: field.TypeTime, SchemaType: map[string]string{
			dialect.Postgres: "TIMESTAMPTZ",
			dialect.SQLite:   "DATETIME",
		}},
	}
	// adFormatsTable holds the schema information for the "ad_formats" table.
	adFormatsTable = &schema.Table{
		Name:       tableAdFormats,
		Columns:    adFormatsColumns,
		PrimaryKey: []*schema.Column{adFormatsColumns[0]},
	}
	// tables holds every table managed by Migrate.
	tables = []*schema.Table{adFormatsTable}
)
