package tiering

import (
	"fmt"
	"io"
	"text/tabwriter"
)

type SiteReport struct {
	Function  string   `json:"function"`
	Location  string   `json:"location"`
	Size      uint64   `json:"size"`
	Score     float64  `json:"score"`
	ForcedHot bool     `json:"forced_hot"`
	Unmatched bool     `json:"unmatched"`
	Frees     int      `json:"frees"`
	Decision  Decision `json:"decision"`
}

type Report struct {
	// Allocation sites in program order.
	Sites []SiteReport `json:"sites"`

	Capacity uint64 `json:"capacity"`
	Used     uint64 `json:"used"`
	Selected int    `json:"selected"`
	Modified bool   `json:"modified"`
}

func (result *Result) Report() *Report {
	decisions := make(map[*AllocationSite]Decision, len(result.Selection.Decisions))
	for _, decision := range result.Selection.Decisions {
		decisions[decision.Site] = decision.Decision
	}

	report := &Report{
		Sites:    []SiteReport{},
		Capacity: result.Selection.Budget.Capacity,
		Used:     result.Selection.Budget.Used,
		Selected: len(result.Selection.Selected),
		Modified: result.Modified,
	}

	for _, site := range result.Summary.Sites() {
		report.Sites = append(
			report.Sites,
			SiteReport{
				Function:  site.FunctionLabel(),
				Location:  site.Call.Loc().ShortString(),
				Size:      site.Size,
				Score:     site.Score,
				ForcedHot: site.ForcedHot,
				Unmatched: site.Unmatched,
				Frees:     len(site.Frees),
				Decision:  decisions[site],
			})
	}

	return report
}

func (report *Report) WriteText(output io.Writer) error {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)

	fmt.Fprintln(writer, "FUNCTION\tLOCATION\tSIZE\tSCORE\tFORCED\tUNMATCHED\tFREES\tDECISION")
	for _, site := range report.Sites {
		fmt.Fprintf(
			writer,
			"@%s\t%s\t%d\t%.2f\t%t\t%t\t%d\t%s\n",
			site.Function,
			site.Location,
			site.Size,
			site.Score,
			site.ForcedHot,
			site.Unmatched,
			site.Frees,
			site.Decision)
	}

	err := writer.Flush()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(
		output,
		"selected %d of %d sites, %d / %d bytes used, modified: %t\n",
		report.Selected,
		len(report.Sites),
		report.Used,
		report.Capacity,
		report.Modified)
	return err
}
