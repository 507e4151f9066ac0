package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/couchcryptid/road-defect-dashboard/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// maxBarWidth is the length of the longest bar in the category chart.
const maxBarWidth = 30

// Presenter writes the dashboard panels as text tables.
type Presenter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPresenter creates a presenter writing to w.
func NewPresenter(w io.Writer) *Presenter {
	return &Presenter{w: w}
}

// ShowSummary writes the four summary counters.
func (p *Presenter) ShowSummary(s domain.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.heading("Summary")
	t := p.table(nil)
	t.AppendBulk([][]string{
		{"Total defects", s.TotalDefects},
		{"Critical defects", s.CriticalDefects},
		{"Road quality", s.Quality},
		{"Repair cost", s.RepairCost},
	})
	t.Render()
}

// ShowChart writes one bar per present category.
func (p *Presenter) ShowChart(counts []domain.CategoryCount) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.heading("Defects by category")
	if len(counts) == 0 {
		fmt.Fprintln(p.w, "  (no defects)")
		return
	}

	peak := 0
	for _, c := range counts {
		peak = max(peak, c.Count)
	}

	t := p.table([]string{"Category", "Count", "Color", ""})
	for _, c := range counts {
		bar := strings.Repeat("#", max(1, c.Count*maxBarWidth/peak))
		t.Append([]string{c.Label, strconv.Itoa(c.Count), c.Color, bar})
	}
	t.Render()
}

// ShowRanking writes the worst-roads list in the given order.
func (p *Presenter) ShowRanking(roads []domain.RankedRoad) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.heading("Worst roads")
	if len(roads) == 0 {
		fmt.Fprintln(p.w, "  (no roads)")
		return
	}

	t := p.table([]string{"#", "Street", "District", "Defects", "Avg severity", "Priority", "Class"})
	for _, r := range roads {
		t.Append([]string{
			strconv.Itoa(r.Rank),
			r.Road.Street,
			r.Road.District,
			strconv.Itoa(r.Road.DefectCount),
			strconv.FormatFloat(r.Road.AvgSeverity, 'f', 1, 64),
			strconv.FormatFloat(r.Road.PriorityScore, 'f', 1, 64),
			string(r.Class),
		})
	}
	t.Render()
}

// ShowLegend writes the category color legend.
func (p *Presenter) ShowLegend(entries []domain.LegendEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.heading("Legend")
	t := p.table(nil)
	for _, e := range entries {
		t.Append([]string{e.Color, e.Label})
	}
	t.Render()
}

// ShowError writes a single error notification.
func (p *Presenter) ShowError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "ERROR: %v\n", err)
}

// ShowNotice writes an informational line.
func (p *Presenter) ShowNotice(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "> %s\n", msg)
}

func (p *Presenter) heading(title string) {
	fmt.Fprintf(p.w, "\n== %s ==\n", title)
}

func (p *Presenter) table(header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(p.w)
	if header != nil {
		t.SetHeader(header)
		t.SetAutoFormatHeaders(false)
	}
	t.SetBorder(false)
	t.SetColumnSeparator(" ")
	t.SetCenterSeparator(" ")
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}
