package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectFencedBlock(t *testing.T) {
	resp := "Here is the result:\n```json\n{\"文献标题\": \"Some Title\", \"发表年份\": 2023}\n```\nHope it helps."
	m, ok := parseObject(resp)
	require.True(t, ok)
	assert.Equal(t, "Some Title", m["文献标题"])
	assert.Equal(t, float64(2023), m["发表年份"])
}

func TestParseObjectBraceSpanInProse(t *testing.T) {
	resp := `The extracted information follows. {"摘要": "An abstract with {braces} in a \"string\""} That is all.`
	m, ok := parseObject(resp)
	require.True(t, ok)
	assert.Contains(t, m["摘要"], "braces")
}

func TestParseObjectWholeText(t *testing.T) {
	m, ok := parseObject(`{"关键词": ["catalysis", "CO2"]}`)
	require.True(t, ok)
	assert.Len(t, m["关键词"], 2)
}

func TestParseObjectFailure(t *testing.T) {
	_, ok := parseObject("I could not find any structured information in this document.")
	assert.False(t, ok)
}

func TestParseObjectPrefersFencedOverSurroundingBraces(t *testing.T) {
	resp := "{not json}\n```json\n{\"文献标题\": \"Fenced\"}\n```"
	m, ok := parseObject(resp)
	require.True(t, ok)
	assert.Equal(t, "Fenced", m["文献标题"])
}

func TestExtractBalancedSpanGreedyFallback(t *testing.T) {
	// The opening brace never closes at depth zero, so the scan falls
	// back to the last closing brace in the text.
	span, ok := extractBalancedSpan(`prefix {"a": {"b": 1} suffix`, '{', '}')
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}`, span)
}

func TestParseActivityResponseObjectAndTable(t *testing.T) {
	resp := "```json\n{\"活性数据\": [{\"催化剂名称\": \"Ni/SiO2\", \"活性数值\": 95.2}]}\n```\n\n" +
		"| 催化剂名称 | 活性数值 |\n|---|---|\n| Ni/SiO2 | 95.2 |"
	items, table := parseActivityResponse(resp)
	require.Len(t, items, 1)
	entry := items[0].(map[string]any)
	assert.Equal(t, "Ni/SiO2", entry["催化剂名称"])
	assert.Contains(t, table, "| Ni/SiO2 | 95.2 |")
	assert.NotContains(t, table, "活性数据\":")
}

func TestParseActivityResponseBareArray(t *testing.T) {
	resp := "[{\"催化剂名称\": \"Cu-Zn\"}]\n\n| 催化剂名称 |\n|---|\n| Cu-Zn |"
	items, table := parseActivityResponse(resp)
	require.Len(t, items, 1)
	assert.Contains(t, table, "Cu-Zn")
}

func TestParseActivityResponseTableOnly(t *testing.T) {
	resp := "No machine-readable data found.\n\n| 催化剂名称 | 备注 |\n|---|---|\n| Pt/C | 低于A催化剂 |"
	items, table := parseActivityResponse(resp)
	assert.Empty(t, items)
	assert.Contains(t, table, "低于A催化剂")
	assert.NotContains(t, table, "No machine-readable")
}

func TestParseActivityResponseProseOnly(t *testing.T) {
	resp := "  The document reports no activity measurements.  "
	items, table := parseActivityResponse(resp)
	assert.Empty(t, items)
	assert.Equal(t, "The document reports no activity measurements.", table)
}

func TestExtractPipeTableRejectsLoneLine(t *testing.T) {
	_, ok := extractPipeTable("some text\n| just one pipe line |\nmore text")
	assert.False(t, ok)
}

func TestExtractPipeTableStopsAtFirstRun(t *testing.T) {
	table, ok := extractPipeTable("| a |\n| b |\ntext between\n| c |\n| d |")
	require.True(t, ok)
	assert.Equal(t, "| a |\n| b |", table)
}
