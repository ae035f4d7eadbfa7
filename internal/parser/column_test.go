package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"text2sql-console/internal/model"
)

func TestParseColumn(t *testing.T) {
	tests := []struct {
		name string
		line string
		want *model.ColumnDescriptor
	}{
		{
			name: "all flags and a comment",
			line: "- `id` INT [主键] [非空] [自增] - primary key",
			want: &model.ColumnDescriptor{
				Name: "id", Type: "INT", DisplayType: "INT",
				PrimaryKey: true, Nullable: false, AutoIncrement: true,
				Comment: "primary key",
			},
		},
		{
			name: "absent not-null marker means nullable",
			line: "- `bio` TEXT",
			want: &model.ColumnDescriptor{
				Name: "bio", Type: "TEXT", DisplayType: "TEXT", Nullable: true,
			},
		},
		{
			name: "type phrase keeps every word for display",
			line: "- `created_at` DATETIME DEFAULT CURRENT_TIMESTAMP [非空]",
			want: &model.ColumnDescriptor{
				Name: "created_at", Type: "DATETIME",
				DisplayType: "DATETIME DEFAULT CURRENT_TIMESTAMP",
			},
		},
		{
			name: "parenthesized fallback",
			line: "  - amount (DECIMAL(12,2)) [非空] - order total",
			want: &model.ColumnDescriptor{
				Name: "amount", Type: "DECIMAL(12,2)", DisplayType: "DECIMAL(12,2)",
				Comment: "order total",
			},
		},
		{
			name: "parenthesized fallback with primary key",
			line: "- id (BIGINT) [主键]",
			want: &model.ColumnDescriptor{
				Name: "id", Type: "BIGINT", DisplayType: "BIGINT",
				PrimaryKey: true, Nullable: true,
			},
		},
		{
			name: "plain list item",
			line: "- just some text",
		},
		{
			name: "backtick name without a type",
			line: "- `id` [主键]",
		},
		{
			name: "empty line",
			line: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ParseColumn(tt.line))
		})
	}
}
