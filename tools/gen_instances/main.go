// Package main provides plan generation for mise benchmarks.
// Generates deterministic plan files with configurable parameters.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
)

// PlanParams defines parameters for plan generation.
type PlanParams struct {
	Seed         int64   `json:"seed"`
	Dishes       int     `json:"dishes"`
	StepsMin     int     `json:"steps_min"`
	StepsMax     int     `json:"steps_max"`
	Cooks        int     `json:"cooks"`         // Capacity of hands; 0 = unlimited
	Burners      int     `json:"burners"`       // Shared by pots and pans
	Ovens        int     `json:"ovens"`
	ModeRatio    float64 `json:"mode_ratio"`    // Fraction of steps with an unattended recipe
	DelayRatio   float64 `json:"delay_ratio"`   // Fraction of edges with a bounded delay
	DinnerMinute int     `json:"dinner_minute"` // Minutes after midnight; negative = no anchor
}

// step kinds: duration mean and stddev in minutes and the resources held.
type stepKind struct {
	name      string
	mean, std float64
	uses      []string
	idle      bool // Can run unattended at half speed
}

var stepKinds = []stepKind{
	{name: "chop", mean: 6, std: 2, uses: []string{"hands", "board"}},
	{name: "boil", mean: 12, std: 3, uses: []string{"burner"}, idle: true},
	{name: "fry", mean: 8, std: 2, uses: []string{"hands", "burner"}},
	{name: "bake", mean: 25, std: 5, uses: []string{"oven"}},
	{name: "whisk", mean: 4, std: 1, uses: []string{"hands"}},
	{name: "simmer", mean: 20, std: 5, uses: []string{"hands", "burner"}, idle: true},
	{name: "rest", mean: 10, std: 3, uses: nil},
}

// Plan is the JSON plan file layout read by mise.
type Plan struct {
	Tasks     map[string]any    `json:"tasks"`
	Resources [][2]any          `json:"resources"`
	Params    map[string]string `json:"params,omitempty"`
}

type recipe struct {
	Duration int      `json:"duration"`
	Demands  [][2]any `json:"demands,omitempty"`
}

type task struct {
	Recipes    []recipe `json:"recipes"`
	Successors [][2]any `json:"successors,omitempty"`
}

// logNormal is a duration distribution. If X ~ LogNormal(mu, sigma),
// then ln(X) ~ Normal(mu, sigma).
type logNormal struct {
	mu, sigma float64
}

// logNormalFromMeanStd derives mu and sigma from the mean and std of X.
func logNormalFromMeanStd(mean, std float64) logNormal {
	sigma2 := math.Log(1 + std*std/(mean*mean))
	return logNormal{mu: math.Log(mean) - sigma2/2, sigma: math.Sqrt(sigma2)}
}

func (d logNormal) sample(rng *rand.Rand) float64 {
	return math.Exp(rng.NormFloat64()*d.sigma + d.mu)
}

// duration samples a whole number of minutes, at least one.
func duration(rng *rand.Rand, k stepKind) int {
	d := logNormalFromMeanStd(k.mean, k.std)
	return max(1, int(math.Round(d.sample(rng))))
}

func demands(uses []string) [][2]any {
	var out [][2]any
	for _, r := range uses {
		out = append(out, [2]any{1, r})
	}
	return out
}

// generatePlan creates a plan from parameters. Every dish is a chain of
// steps; the last step of every dish precedes a shared plating step.
func generatePlan(params PlanParams) (string, *Plan) {
	rng := rand.New(rand.NewSource(params.Seed))
	name := fmt.Sprintf("mise_%d_dishes_%d", params.Dishes, params.Seed)

	plan := &Plan{Tasks: make(map[string]any)}
	capacity := func(n int) any {
		if n <= 0 {
			return -1
		}
		return n
	}
	plan.Resources = [][2]any{
		{"hands", capacity(params.Cooks)},
		{"board", 1},
		{"burner", capacity(params.Burners)},
		{"oven", capacity(params.Ovens)},
	}

	plate := "serve.plate"
	for d := 0; d < params.Dishes; d++ {
		dish := make(map[string]any)
		steps := params.StepsMin + rng.Intn(params.StepsMax-params.StepsMin+1)
		for s := 0; s < steps; s++ {
			k := stepKinds[rng.Intn(len(stepKinds))]
			dur := duration(rng, k)
			t := task{Recipes: []recipe{{Duration: dur, Demands: demands(k.uses)}}}

			// Unattended variant frees the cook but takes longer
			if k.idle && rng.Float64() < params.ModeRatio {
				var uses []string
				for _, r := range k.uses {
					if r != "hands" {
						uses = append(uses, r)
					}
				}
				t.Recipes = append(t.Recipes, recipe{Duration: dur + dur/2 + 1, Demands: demands(uses)})
			}

			next := plate
			if s < steps-1 {
				next = fmt.Sprintf("dish_%02d.step_%02d", d, s+1)
			}
			delay := 0
			if rng.Float64() < params.DelayRatio {
				delay = 1 + rng.Intn(10)
			}
			t.Successors = [][2]any{{next, delay}}
			dish[fmt.Sprintf("step_%02d", s)] = t
		}
		plan.Tasks[fmt.Sprintf("dish_%02d", d)] = dish
	}
	plan.Tasks["serve"] = map[string]any{
		"plate": task{Recipes: []recipe{{Duration: 5, Demands: demands([]string{"hands"})}}},
	}

	if params.DinnerMinute >= 0 {
		plan.Params = map[string]string{
			"dinner": fmt.Sprintf("%02d:%02d", params.DinnerMinute/60%24, params.DinnerMinute%60),
		}
	}
	return name, plan
}

func main() {
	// Parse flags
	seed := flag.Int64("seed", 42, "Random seed for deterministic generation")
	dishes := flag.Int("dishes", 4, "Number of dishes")
	stepsMin := flag.Int("steps-min", 2, "Minimum steps per dish")
	stepsMax := flag.Int("steps-max", 5, "Maximum steps per dish")
	cooks := flag.Int("cooks", 2, "Number of cooks (0 = unlimited)")
	burners := flag.Int("burners", 4, "Number of burners (0 = unlimited)")
	ovens := flag.Int("ovens", 1, "Number of ovens (0 = unlimited)")
	modeRatio := flag.Float64("modes", 0.5, "Fraction of eligible steps with an unattended recipe")
	delayRatio := flag.Float64("delays", 0.2, "Fraction of edges with a bounded delay")
	dinner := flag.String("dinner", "19:30", "Dinner time HH:MM (empty = no anchor)")
	outputDir := flag.String("output", "testdata", "Output directory")
	scalingMode := flag.Bool("scaling", false, "Generate scaling test plans (2, 4, 8, 16 dishes)")

	flag.Parse()

	if *stepsMin < 1 || *stepsMax < *stepsMin {
		fmt.Fprintln(os.Stderr, "Error: need 1 <= steps-min <= steps-max")
		os.Exit(2)
	}
	dinnerMinute := -1
	if *dinner != "" {
		var h, m int
		if _, err := fmt.Sscanf(*dinner, "%d:%d", &h, &m); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing dinner time %q: %v\n", *dinner, err)
			os.Exit(2)
		}
		dinnerMinute = h*60 + m
	}

	// Create output directory
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	base := PlanParams{
		Seed:         *seed,
		Dishes:       *dishes,
		StepsMin:     *stepsMin,
		StepsMax:     *stepsMax,
		Cooks:        *cooks,
		Burners:      *burners,
		Ovens:        *ovens,
		ModeRatio:    *modeRatio,
		DelayRatio:   *delayRatio,
		DinnerMinute: dinnerMinute,
	}

	var sizes []int
	if *scalingMode {
		sizes = []int{2, 4, 8, 16}
	} else {
		sizes = []int{*dishes}
	}

	// Write plans to files
	for _, size := range sizes {
		params := base
		params.Dishes = size
		name, plan := generatePlan(params)

		filename := filepath.Join(*outputDir, name+".json")
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling plan %s: %v\n", name, err)
			continue
		}

		if err := os.WriteFile(filename, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing plan %s: %v\n", filename, err)
			continue
		}

		fmt.Printf("Generated: %s (%d dishes, %d-%d steps each)\n",
			filename, params.Dishes, params.StepsMin, params.StepsMax)
	}
}
