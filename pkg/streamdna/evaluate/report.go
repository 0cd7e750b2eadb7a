package evaluate

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/himanishpuri/StreamDNA/pkg/models"
)

// Result is the outcome for one trace. Video is the ground truth taken from
// the trace directory.
type Result struct {
	Video          int
	Path           string
	Classification models.Classification
	Err            error
}

func (r Result) Correct() bool {
	return r.Err == nil && r.Classification.Video == r.Video
}

// VideoStats is the accuracy over the traces of one video.
type VideoStats struct {
	Video   int
	Correct int
	Total   int
}

// Report aggregates the results of one evaluation run.
type Report struct {
	Results []Result // classified traces, in run order
	Failed  []Result // traces that could not be classified

	FastRight int
	FastWrong int
	SlowRight int
	SlowWrong int
}

func (r *Report) add(res Result) {
	if res.Err != nil {
		r.Failed = append(r.Failed, res)
		return
	}
	r.Results = append(r.Results, res)
	switch {
	case res.Correct() && res.Classification.Fast:
		r.FastRight++
	case res.Correct():
		r.SlowRight++
	case res.Classification.Fast:
		r.FastWrong++
	default:
		r.SlowWrong++
	}
}

func (r *Report) Total() int {
	return len(r.Results)
}

func (r *Report) Correct() int {
	return r.FastRight + r.SlowRight
}

// Accuracy returns the fraction of correctly classified traces, 0 for an
// empty report.
func (r *Report) Accuracy() float64 {
	return ratio(r.Correct(), r.Total())
}

// PerVideo returns the stats of every video with at least one classified
// trace, by ascending id.
func (r *Report) PerVideo() []VideoStats {
	byVideo := make(map[int]*VideoStats)
	for _, res := range r.Results {
		s, ok := byVideo[res.Video]
		if !ok {
			s = &VideoStats{Video: res.Video}
			byVideo[res.Video] = s
		}
		s.Total++
		if res.Correct() {
			s.Correct++
		}
	}

	out := make([]VideoStats, 0, len(byVideo))
	for _, s := range byVideo {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Video < out[j].Video })
	return out
}

// Render writes the per-video table followed by the global accuracy lines.
// With verbose set every decision is listed first.
func (r *Report) Render(w io.Writer, verbose bool) error {
	if verbose {
		for _, res := range r.Results {
			if err := renderResult(w, res); err != nil {
				return err
			}
		}
		for _, res := range r.Failed {
			if _, err := fmt.Fprintf(w, "Failed %s: %v\n", res.Path, res.Err); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	var data [][]string
	for _, s := range r.PerVideo() {
		data = append(data, []string{
			fmt.Sprintf("%02d", s.Video),
			fmt.Sprintf("%d/%d", s.Correct, s.Total),
			percent(s.Correct, s.Total),
		})
	}
	if len(data) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"VIDEO", "CORRECT", "ACCURACY"})
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetHeaderLine(false)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")
		table.AppendBulk(data)
		table.Render()
	}

	_, err := fmt.Fprintf(w, "Global accuracy %d/%d (%s)\n"+
		"%d correct classifications were fast mode, %d were slow mode\n"+
		"%d wrong classifications were fast mode, %d were slow mode\n",
		r.Correct(), r.Total(), percent(r.Correct(), r.Total()),
		r.FastRight, r.SlowRight,
		r.FastWrong, r.SlowWrong)
	if err != nil {
		return err
	}
	if len(r.Failed) > 0 {
		_, err = fmt.Fprintf(w, "%d traces could not be classified\n", len(r.Failed))
	}
	return err
}

func renderResult(w io.Writer, res Result) error {
	c := res.Classification
	mode := "slow"
	if c.Fast {
		mode = "fast"
	}
	verdict := "Correct"
	if !res.Correct() {
		verdict = "Incorrect"
	}
	_, err := fmt.Fprintf(w, "%s classification, %s: %d -> %d (%s mode, %d/%d matches)\n",
		verdict, res.Path, res.Video, c.Video, mode, c.Votes, c.Matches)
	if err != nil || c.Trigger == nil {
		return err
	}
	for i, m := range c.Trigger {
		_, err = fmt.Fprintf(w, "  match %d: quality %s, offset %d at capture offset %d\n",
			i+1, m.Quality, m.CandidateOffset, m.CaptureOffset)
		if err != nil {
			return err
		}
	}
	return nil
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func percent(n, d int) string {
	return fmt.Sprintf("%.2f%%", ratio(n, d)*100)
}
