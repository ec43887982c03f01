package output_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/output"
)

func summaryToString(rows []output.SummaryRow, opts output.TableOptions) string {
	var buf bytes.Buffer
	output.RenderRunSummary(&buf, rows, opts)
	return buf.String()
}

func costData() *models.CostData {
	group := func(service, amount string) models.CostGroup {
		return models.CostGroup{
			Keys:    []string{service},
			Metrics: map[string]models.MetricValue{"BlendedCost": {Amount: amount, Unit: "USD"}},
		}
	}
	return &models.CostData{
		Period: "2024-03-08 to 2024-03-15",
		CostData: []models.CostResultByTime{
			{Groups: []models.CostGroup{group("Amazon EC2", "10.50"), group("AWS Lambda", "0.25")}},
			{Groups: []models.CostGroup{group("Amazon EC2", "9.50"), group("Amazon S3", "1.00")}},
		},
	}
}

// ── RenderRunSummary ─────────────────────────────────────────────────────────

func TestRenderRunSummary_StatusPerOperation(t *testing.T) {
	out := summaryToString([]output.SummaryRow{
		{Operation: "cost_analysis", Response: models.Success(map[string]any{"period": "x"})},
		{Operation: "service_audit", Response: models.Failure("HTTP 502: Bad Gateway")},
	}, output.TableOptions{})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d; want header, separator and 2 rows:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[2], "cost_analysis") || !strings.Contains(lines[2], "Success") {
		t.Errorf("row 1 = %q", lines[2])
	}
	if !strings.Contains(lines[3], "Error") || !strings.Contains(lines[3], "HTTP 502: Bad Gateway") {
		t.Errorf("row 2 = %q", lines[3])
	}
}

func TestRenderRunSummary_Empty(t *testing.T) {
	out := summaryToString(nil, output.TableOptions{})
	if strings.TrimSpace(out) != "No operations run." {
		t.Errorf("out = %q", out)
	}
}

func TestRenderRunSummary_ColoredFalse_NoAnsiCodes(t *testing.T) {
	out := summaryToString([]output.SummaryRow{{Operation: "x", Response: models.Failure("boom")}}, output.TableOptions{})
	if strings.Contains(out, "\033[") {
		t.Error("uncolored output must not contain ANSI codes")
	}
}

func TestRenderRunSummary_ColoredTrue_HasAnsiCodes(t *testing.T) {
	out := summaryToString([]output.SummaryRow{{Operation: "x", Response: models.Failure("boom")}}, output.TableOptions{Colored: true})
	if !strings.Contains(out, "\033[") {
		t.Error("colored output must contain ANSI codes")
	}
}

func TestRenderRunSummary_DetailTruncated(t *testing.T) {
	long := strings.Repeat("x", 200)
	out := summaryToString([]output.SummaryRow{{Operation: "x", Response: models.Failure(long)}}, output.TableOptions{MaxDetail: 20})
	if strings.Contains(out, long) {
		t.Error("long detail must be truncated")
	}
	if !strings.Contains(out, "...") {
		t.Error("truncated detail must end with ellipsis")
	}
}

// ── cost table ───────────────────────────────────────────────────────────────

func TestSummarizeCost_SumsAndSorts(t *testing.T) {
	got := output.SummarizeCost(costData())
	if len(got) != 3 {
		t.Fatalf("services = %d; want 3", len(got))
	}
	if got[0].Service != "Amazon EC2" || got[0].Amount != 20 {
		t.Errorf("first = %+v; want Amazon EC2 20.00", got[0])
	}
	if got[2].Service != "AWS Lambda" {
		t.Errorf("last = %+v; want AWS Lambda", got[2])
	}
}

func TestSummarizeCost_SkipsUnparsable(t *testing.T) {
	data := &models.CostData{CostData: []models.CostResultByTime{{Groups: []models.CostGroup{{
		Keys:    []string{"Amazon EC2"},
		Metrics: map[string]models.MetricValue{"BlendedCost": {Amount: "n/a"}},
	}}}}}
	if got := output.SummarizeCost(data); len(got) != 0 {
		t.Errorf("got %+v; want none", got)
	}
}

func TestRenderCostTable(t *testing.T) {
	var buf bytes.Buffer
	output.RenderCostTable(&buf, costData(), output.TableOptions{})
	out := buf.String()

	for _, want := range []string{"Period: 2024-03-08 to 2024-03-15", "Amazon EC2", "20.00", "TOTAL", "21.25"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCostTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	output.RenderCostTable(&buf, &models.CostData{}, output.TableOptions{})
	if strings.TrimSpace(buf.String()) != "No cost data." {
		t.Errorf("out = %q", buf.String())
	}
}

// ── ShortenMessage ───────────────────────────────────────────────────────────

func TestShortenMessage_ShortString_Unchanged(t *testing.T) {
	if got := output.ShortenMessage("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestShortenMessage_TooLong_TruncatedWithEllipsis(t *testing.T) {
	got := output.ShortenMessage("abcdefghijkl", 8)
	if got != "abcde..." {
		t.Errorf("got %q; want abcde...", got)
	}
}

func TestShortenMessage_VerySmallMax_DoesNotPanic(t *testing.T) {
	if got := output.ShortenMessage("abcdefgh", 1); got != "a..." {
		t.Errorf("got %q; want a...", got)
	}
}
