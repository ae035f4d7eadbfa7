package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const text2sqlResponse = "**生成的SQL语句:**\n" +
	"```sql\n" +
	"SELECT *\n" +
	"FROM users\n" +
	"\n" +
	"  WHERE id = 1\n" +
	"```\n" +
	"\n" +
	"**查询说明:**\n" +
	"查询ID为1的用户\n" +
	"\n" +
	"包含所有字段\n"

const combinedResponse = "**生成的SQL:**\n" +
	"```sql\n" +
	"SELECT name, age FROM users\n" +
	"```\n" +
	"**查询说明:**\n" +
	"按年龄列出用户\n" +
	"**执行结果:**\n" +
	"**查询统计:** 返回 4 行数据，执行耗时 12 ms\n" +
	"**查询结果:**\n" +
	"| name | age |\n" +
	"|------|-----|\n" +
	"| alice | 30 |\n" +
	"| bob | NULL |\n" +
	"| carol\n"

func TestParseSQLAndExplanation(t *testing.T) {
	t.Run("fenced statement and explanation", func(t *testing.T) {
		got := ParseSQLAndExplanation(text2sqlResponse)
		require.Equal(t, "SELECT *\nFROM users\n  WHERE id = 1", got.SQL)
		require.Equal(t, "查询ID为1的用户\n包含所有字段", got.Explanation)
	})

	t.Run("short SQL label", func(t *testing.T) {
		got := ParseSQLAndExplanation("**生成的SQL:**\n```sql\nSELECT 1\n```")
		require.Equal(t, "SELECT 1", got.SQL)
		require.Empty(t, got.Explanation)
	})

	t.Run("windows line endings", func(t *testing.T) {
		got := ParseSQLAndExplanation("```sql\r\nSELECT 1\r\n```\r\n**查询说明:**\r\none\r\n")
		require.Equal(t, "SELECT 1", got.SQL)
		require.Equal(t, "one", got.Explanation)
	})

	t.Run("explanation without a statement", func(t *testing.T) {
		got := ParseSQLAndExplanation("**查询说明:**\n无法生成查询")
		require.Empty(t, got.SQL)
		require.Equal(t, "无法生成查询", got.Explanation)
	})

	t.Run("no labels at all", func(t *testing.T) {
		got := ParseSQLAndExplanation("hello\nworld")
		require.Empty(t, got.SQL)
		require.Empty(t, got.Explanation)
	})

	t.Run("results label is ordinary text without results", func(t *testing.T) {
		got := ParseSQLAndExplanation("**查询说明:**\nfirst\n**执行结果:**\nsecond")
		require.Equal(t, "first\n**执行结果:**\nsecond", got.Explanation)
	})

	t.Run("bare lines under the label are ignored", func(t *testing.T) {
		got := ParseSQLAndExplanation("**生成的SQL:**\nSELECT 1")
		require.Empty(t, got.SQL)
	})
}

func TestParseCombined(t *testing.T) {
	t.Run("statement explanation and results", func(t *testing.T) {
		got := ParseCombined(combinedResponse)
		require.Equal(t, "SELECT name, age FROM users", got.SQL)
		require.Equal(t, "按年龄列出用户", got.Explanation)

		require.NotNil(t, got.Results)
		require.Equal(t, []string{"name", "age"}, got.Results.Columns)
		require.Len(t, got.Results.Rows, 2)
		require.Equal(t, "alice", *got.Results.Rows[0][0])
		require.Equal(t, "30", *got.Results.Rows[0][1])
		require.Nil(t, got.Results.Rows[1][1])
		require.Equal(t, 4, got.Results.TotalRows)
		require.Equal(t, int64(12), got.Results.ExecutionTimeMs)
	})

	t.Run("bare statement under the label", func(t *testing.T) {
		got := ParseCombined("**生成的SQL:**\nSELECT COUNT(*) FROM orders\n\n" +
			"**执行结果:**\n**查询统计:** 返回 0 行数据，执行耗时 3 ms\n")
		require.Equal(t, "SELECT COUNT(*) FROM orders", got.SQL)
		require.NotNil(t, got.Results)
		require.Empty(t, got.Results.Rows)
		require.Empty(t, got.Results.Columns)
		require.Equal(t, int64(3), got.Results.ExecutionTimeMs)
	})

	t.Run("fenced statement wins over bare lines", func(t *testing.T) {
		got := ParseCombined("**生成的SQL:**\n```sql\nSELECT 2\n```\n")
		require.Equal(t, "SELECT 2", got.SQL)
	})

	t.Run("no results section", func(t *testing.T) {
		got := ParseCombined("```sql\nSELECT 1\n```")
		require.Equal(t, "SELECT 1", got.SQL)
		require.NotNil(t, got.Results)
		require.Empty(t, got.Results.Rows)
	})

	t.Run("results without a table", func(t *testing.T) {
		got := ParseCombined("**执行结果:**\n**查询统计:** 返回 2 行数据，执行耗时 5 ms\n")
		require.Nil(t, got.Results)
	})
}
