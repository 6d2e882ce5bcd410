package classify

import "sort"

// severity weights used for health scoring. Critical entries dominate.
var healthWeights = map[Severity]float64{
	SeverityCritical:  1.0,
	SeverityError:     0.6,
	SeverityWarning:   0.3,
	SeverityImportant: 0.15,
	SeverityInfo:      0.0,
}

// ComponentHealth derives a per-component health score in [0,1] from the
// severity mix of classified entries, 1.0 meaning no negative signal.
// This is the locally computed stand-in for the optional machine-learning
// insights input of the retriever and synthesizer.
func ComponentHealth(entries []*Entry) map[string]float64 {
	if len(entries) == 0 {
		return map[string]float64{}
	}

	totals := make(map[string]int)
	penalties := make(map[string]float64)
	for _, entry := range entries {
		totals[entry.Component]++
		penalties[entry.Component] += healthWeights[entry.Severity]
	}

	health := make(map[string]float64, len(totals))
	for component, total := range totals {
		score := 1.0 - penalties[component]/float64(total)
		if score < 0 {
			score = 0
		}
		health[component] = score
	}
	return health
}

// UnhealthyComponents lists components below the given health threshold,
// worst first. Ties are broken alphabetically for stable output.
func UnhealthyComponents(health map[string]float64, threshold float64) []string {
	var components []string
	for component, score := range health {
		if score < threshold {
			components = append(components, component)
		}
	}

	sort.Slice(components, func(i, j int) bool {
		if health[components[i]] != health[components[j]] {
			return health[components[i]] < health[components[j]]
		}
		return components[i] < components[j]
	})
	return components
}
