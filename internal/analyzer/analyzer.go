// The structured analyzer issues two sequential LLM calls per document:
// one for the general bibliographic fields and one dedicated to the
// activity-data table, then reconciles both loosely-structured replies
// into a single record.

package analyzer

import (
	"context"
	"fmt"
	"log"
)

// Field names for the two analyzer-owned output keys. The general call's
// keys are whatever the model returns for the checklist fields.
const (
	FieldActivityData  = "活性数据"
	FieldActivityTable = "activity_data_markdown"
)

const systemPrompt = "You are a professional chemistry literature analysis assistant"

// Record is the merged result of the two analyzer calls. The raw reply
// texts are kept verbatim for persistence and debugging.
type Record struct {
	General       map[string]any
	ActivityData  []any
	ActivityTable string
	RawGeneral    string
	RawActivity   string
}

// Field looks up a checklist item's value. The activity-data field is
// always present (possibly empty); general fields are present only when
// the model returned them.
func (r *Record) Field(name string) (any, bool) {
	if name == FieldActivityData {
		return r.ActivityData, true
	}
	v, ok := r.General[name]
	return v, ok
}

// Merged flattens the record into one map for persistence.
func (r *Record) Merged() map[string]any {
	out := make(map[string]any, len(r.General)+2)
	for k, v := range r.General {
		out[k] = v
	}
	out[FieldActivityData] = r.ActivityData
	out[FieldActivityTable] = r.ActivityTable
	return out
}

// Analyzer drives the two-call extraction against an LLM transport.
type Analyzer struct {
	client Client
}

// New creates an Analyzer on the given transport.
func New(client Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze performs both calls in sequence. Transport failures are
// returned to the caller and terminate the run; parse failures degrade
// the failing call's contribution to empty instead of aborting
// (availability over completeness).
func (a *Analyzer) Analyze(ctx context.Context, documentText string) (*Record, error) {
	record := &Record{
		General:      map[string]any{},
		ActivityData: []any{},
	}

	// --- First call: every checklist field except the activity data ---
	generalText, err := a.client.Complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: generalInfoPrompt(documentText)},
	})
	if err != nil {
		return nil, fmt.Errorf("general-info call failed: %w", err)
	}
	log.Printf("Raw analyzer response (general info): %s", generalText)
	record.RawGeneral = generalText

	if parsed, ok := parseObject(generalText); ok {
		record.General = parsed
	} else {
		log.Printf("Could not parse general-info response as JSON; continuing with empty general fields")
	}

	// --- Second call: activity data only ---
	activityText, err := a.client.Complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: activityDataPrompt(documentText)},
	})
	if err != nil {
		return nil, fmt.Errorf("activity-data call failed: %w", err)
	}
	log.Printf("Raw analyzer response (activity data): %s", activityText)
	record.RawActivity = activityText

	record.ActivityData, record.ActivityTable = parseActivityResponse(activityText)
	return record, nil
}

func generalInfoPrompt(documentText string) string {
	return fmt.Sprintf(`请分析以下科研文献，提取除活性数据之外的关键信息：
1. 文献标题
2. 作者列表
3. 发表期刊/会议
4. 发表年份
5. 摘要
6. 关键词
7. 催化反应类型
8. 催化剂制备方法
9. 表征手段及结论
10. 主要founded发现
11. 结论
12. 实验价值与启示：你是一名从事热催化的研究者，这篇文献对你在催化剂的理解上，以及催化剂制备方法上，以及表征手段上有哪些启示，你在这其中学到了什么，输出一段条理清晰的文字
请以纯粹的JSON格式返回结果，不包含任何额外的文本、解释或Markdown代码块（例如 `+"```json"+` ）。结果必须是一个有效的JSON对象，包含以上所有字段。对于催化剂制备方法、表征手段及结论、结论和实验价值与启示，请尽可能详细提取并结构化。

文献内容：
%s`, documentText)
}

func activityDataPrompt(documentText string) string {
	return fmt.Sprintf(`请分析以下科研文献，专门提取"活性数据"。你需要严格按照以下格式输出两次活性数据：

1. **JSON格式的活性数据**：首先，请提供一个独立的、完整的JSON结构（可以是一个JSON对象，其中包含一个名为 '活性数据' 的数组，或者直接是一个JSON数组），专门包含这些活性数据。确保此JSON结构可以被程序直接解析。

2. **Markdown格式的活性数据表格**：接着，请提供一个独立的Markdown表格，详细列出活性数据，包括但不限于催化剂名称、活性数值、单位、测试温度、测试压力、主要结果和备注。
关于"活性数值"列：
- 仅填写文本中明确给出的具体数值。如果活性数据是模糊描述（例如"低于A催化剂"、"高于B催化剂"、"没有明确数值"等），请将"活性数值"列留空。

关于"备注"列：
- 如果"活性数值"列因模糊描述而留空，请将该模糊描述或相关说明详细填写在"备注"列中。
- 对于有明确"活性数值"的行，"备注"列可以留空或填写其他相关补充信息。

请确保表格数据准确、完整，并严格遵循上述规则。请确保Markdown表格的每一行（包括表头和分隔线）都以 | 开始和结束。

请确保JSON结构和Markdown表格是严格分开的，并且都是完整和准确的。

文献内容：
%s`, documentText)
}
