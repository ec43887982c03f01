package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
)

// TableOptions controls how tables are rendered.
type TableOptions struct {
	// Colored wraps status labels in ANSI codes. Default false (CI-safe).
	Colored bool

	// MaxDetail caps the DETAIL column in rune count. Zero means 60.
	MaxDetail int
}

// SummaryRow is one operation outcome in a run summary.
type SummaryRow struct {
	Operation string
	Response  models.Response
}

// paint applies attr to s when colored is true. Color is forced on so that
// output stays colored when piped, matching the caller's explicit choice.
func paint(attr color.Attribute, s string, colored bool) string {
	if !colored {
		return s
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

// StatusLabel returns "Success" or "Error" for resp, colored when requested.
func StatusLabel(resp models.Response, colored bool) string {
	if resp.Failed() {
		return paint(color.FgRed, "Error", colored)
	}
	return paint(color.FgGreen, "Success", colored)
}

// statusCell pads the status label to width. ANSI codes wrap only the text so
// the following columns stay aligned.
func statusCell(resp models.Response, width int, colored bool) string {
	text := "Success"
	if resp.Failed() {
		text = "Error"
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return StatusLabel(resp, colored) + strings.Repeat(" ", spaces)
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// detail summarises an envelope for the DETAIL column: the error text for
// failures and the compact result for successes.
func detail(resp models.Response, max int) string {
	if resp.Failed() {
		return ShortenMessage(resp.Error, max)
	}
	return ShortenMessage(strings.Join(strings.Fields(string(resp.Result)), " "), max)
}

// RenderRunSummary writes one line per operation with its status.
//
//	OPERATION  STATUS  DETAIL
func RenderRunSummary(w io.Writer, rows []SummaryRow, opts TableOptions) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No operations run.")
		return
	}
	if opts.MaxDetail == 0 {
		opts.MaxDetail = 60
	}

	const (
		wOperation = 20
		wStatus    = 8
	)

	header := fmt.Sprintf("%-*s  %-*s  %s", wOperation, "OPERATION", wStatus, "STATUS", "DETAIL")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)+opts.MaxDetail-len("DETAIL")))

	for _, r := range rows {
		fmt.Fprintf(w, "%-*s  %s  %s\n",
			wOperation, r.Operation,
			statusCell(r.Response, wStatus, opts.Colored),
			detail(r.Response, opts.MaxDetail),
		)
	}
}

// ServiceCost is the summed cost of one service over a cost window.
type ServiceCost struct {
	Service string
	Amount  float64
	Unit    string
}

// SummarizeCost sums the BlendedCost of every group across all days and
// returns one entry per service, most expensive first. Unparsable amounts
// are skipped.
func SummarizeCost(data *models.CostData) []ServiceCost {
	if data == nil {
		return nil
	}
	byService := make(map[string]*ServiceCost)
	for _, day := range data.CostData {
		for _, g := range day.Groups {
			if len(g.Keys) == 0 {
				continue
			}
			m, ok := g.Metrics["BlendedCost"]
			if !ok {
				continue
			}
			amount, err := strconv.ParseFloat(m.Amount, 64)
			if err != nil {
				continue
			}
			sc, ok := byService[g.Keys[0]]
			if !ok {
				sc = &ServiceCost{Service: g.Keys[0], Unit: m.Unit}
				byService[g.Keys[0]] = sc
			}
			sc.Amount += amount
		}
	}

	out := make([]ServiceCost, 0, len(byService))
	for _, sc := range byService {
		out = append(out, *sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Service < out[j].Service
	})
	return out
}

// RenderCostTable writes per-service totals for data followed by a TOTAL row.
func RenderCostTable(w io.Writer, data *models.CostData, opts TableOptions) {
	rows := SummarizeCost(data)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No cost data.")
		return
	}

	const (
		wService = 45
		wAmount  = 12
	)

	fmt.Fprintf(w, "Period: %s\n", data.Period)
	header := fmt.Sprintf("%-*s  %*s  %s", wService, "SERVICE", wAmount, "COST", "UNIT")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	var total float64
	for _, r := range rows {
		total += r.Amount
		fmt.Fprintf(w, "%-*s  %*.2f  %s\n", wService, ShortenMessage(r.Service, wService), wAmount, r.Amount, r.Unit)
	}
	totalLabel := paint(color.Bold, "TOTAL", opts.Colored) + strings.Repeat(" ", wService-len("TOTAL"))
	fmt.Fprintf(w, "%s  %*.2f  %s\n", totalLabel, wAmount, total, rows[0].Unit)
}
