// Package report renders solved schedules as text for the cook and as JSON
// for other tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/elektrokombinacija/mise/internal/core"
)

// FormatDuration renders minutes as HHhMMm. Hours do not wrap.
func FormatDuration(minutes int) string {
	return fmt.Sprintf("%02dh%02dm", minutes/60, minutes%60)
}

// FormatClock renders minutes after midnight as HH:MM on a 24-hour clock.
// Values outside one day wrap around.
func FormatClock(minutes int) string {
	m := ((minutes % core.MinutesPerDay) + core.MinutesPerDay) % core.MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Reporter renders one solve result.
type Reporter struct {
	Problem  *core.Problem
	Solution *core.Solution
	Anchor   core.Anchor
	Color    bool // Emit ANSI colors
}

// New creates a Reporter without colors.
func New(p *core.Problem, sol *core.Solution, anchor core.Anchor) *Reporter {
	return &Reporter{Problem: p, Solution: sol, Anchor: anchor}
}

type styles struct {
	good, fair, bad, name func(a ...any) string
}

func (r *Reporter) styles() styles {
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		if !r.Color {
			return fmt.Sprint
		}
		c := color.New(attrs...)
		c.EnableColor()
		return c.SprintFunc()
	}
	return styles{
		good: mk(color.Bold, color.FgGreen),
		fair: mk(color.Bold, color.FgYellow),
		bad:  mk(color.Bold, color.FgRed),
		name: mk(color.Bold),
	}
}

// Print writes the human-readable schedule:
//
//	Optimal schedule will take 00h12m
//
//	boil_water :: 00:00 - 00:10 anywhere
//	  make_tea :: 00:10 - 00:12 anywhere
func (r *Reporter) Print(w io.Writer) error {
	st := r.styles()
	sol := r.Solution

	switch {
	case sol.Status.HasSolution():
	case sol.Status == core.StatusInfeasible:
		_, err := fmt.Fprintln(w, st.bad("Solution was not found."))
		return err
	default:
		_, err := fmt.Fprintln(w, st.bad("Solution was not found within the search limits."))
		return err
	}

	status := st.fair(sol.Status.String())
	if sol.Status == core.StatusOptimal {
		status = st.good(sol.Status.String())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s schedule will take %s\n", status, FormatDuration(sol.Makespan))

	offset := r.Anchor.Offset(sol.Makespan)
	switch r.Anchor.Kind {
	case core.AnchorStart:
		fmt.Fprintf(&b, "If you start cooking at %s, then dinner can be served by %s\n",
			FormatClock(r.Anchor.Clock), FormatClock(offset+sol.Makespan))
	case core.AnchorDinner:
		fmt.Fprintf(&b, "Start cooking at %s if dinner is to be served by %s\n",
			FormatClock(offset), FormatClock(r.Anchor.Clock))
	}
	b.WriteString("\n")

	width := 0
	for _, t := range r.Problem.Tasks {
		width = max(width, utf8.RuneCountInString(t.Name))
	}
	for _, a := range sol.Order() {
		task := r.Problem.Tasks[a.Task]
		// Pad before styling so escape codes do not count toward the width
		name := fmt.Sprintf("%*s", width, task.Name)
		fmt.Fprintf(&b, "%s :: %s - %s %s", st.name(name),
			FormatClock(a.Start+offset), FormatClock(a.End+offset), r.where(task.Recipes[a.Mode]))
		if task.HasModes() {
			fmt.Fprintf(&b, " following recipe %d", a.Mode)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// where renders the resources a recipe holds.
func (r *Reporter) where(recipe core.Recipe) string {
	ids := recipe.Resources()
	if len(ids) == 0 {
		return "anywhere"
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = r.Problem.Resources[id].Name
	}
	return "using [" + strings.Join(names, ", ") + "]"
}

// TaskReport is one scheduled task in a JSON report.
type TaskReport struct {
	Name      string   `json:"name"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Minutes   int      `json:"minutes"`
	Recipe    int      `json:"recipe"`
	Resources []string `json:"resources"`
}

// Summary is the machine-readable form of a solve result.
type Summary struct {
	Status   string       `json:"status"`
	Solver   string       `json:"solver,omitempty"`
	Makespan int          `json:"makespan"`
	Duration string       `json:"duration"`
	Start    string       `json:"start,omitempty"`
	Dinner   string       `json:"dinner,omitempty"`
	Tasks    []TaskReport `json:"tasks,omitempty"`
}

// Summarize builds the JSON form of the result, tasks in start order.
func (r *Reporter) Summarize() Summary {
	sol := r.Solution
	s := Summary{
		Status: sol.Status.String(),
		Solver: sol.Solver,
	}
	if !sol.Status.HasSolution() {
		return s
	}
	s.Makespan = sol.Makespan
	s.Duration = FormatDuration(sol.Makespan)

	offset := r.Anchor.Offset(sol.Makespan)
	if r.Anchor.Kind != core.AnchorNone {
		s.Start = FormatClock(offset)
		s.Dinner = FormatClock(offset + sol.Makespan)
	}
	for _, a := range sol.Order() {
		task := r.Problem.Tasks[a.Task]
		recipe := task.Recipes[a.Mode]
		names := make([]string, 0, len(recipe.Demands))
		for _, id := range recipe.Resources() {
			names = append(names, r.Problem.Resources[id].Name)
		}
		s.Tasks = append(s.Tasks, TaskReport{
			Name:      task.Name,
			Start:     FormatClock(a.Start + offset),
			End:       FormatClock(a.End + offset),
			Minutes:   a.End - a.Start,
			Recipe:    a.Mode,
			Resources: names,
		})
	}
	return s
}

// PrintJSON writes the summary as indented JSON.
func (r *Reporter) PrintJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Summarize())
}
