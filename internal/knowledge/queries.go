package knowledge

import "fmt"

// QueryCap bounds the number of generated queries so the search budget
// stays predictable. Emergency queries are generated first and therefore
// always survive the cap.
const QueryCap = 12

// genericTemplates pair a component with a troubleshooting intent when no
// error category applies.
var genericTemplates = []string{
	"%s troubleshooting guide",
	"%s common failure causes",
}

// GenerateQueries shapes prioritized retrieval queries from a log context.
// Order: emergency queries for critical situations first, then
// component-category pairs, then generic troubleshooting templates.
func GenerateQueries(logCtx *LogContext) []Query {
	if logCtx == nil || logCtx.TotalEntries == 0 {
		return nil
	}

	var queries []Query

	if logCtx.HasCritical {
		for _, component := range logCtx.Components {
			queries = append(queries, Query{
				Text:      fmt.Sprintf("%s critical failure recovery", component),
				Component: component,
				Priority:  PriorityEmergency,
			})
		}
		if len(logCtx.Components) == 0 {
			queries = append(queries, Query{
				Text:     "critical agent failure recovery",
				Priority: PriorityEmergency,
			})
		}
	}

	for _, component := range logCtx.Components {
		for _, category := range logCtx.ErrorCategories {
			queries = append(queries, Query{
				Text:      fmt.Sprintf("%s %s errors", component, category),
				Component: component,
				Priority:  PriorityHigh,
			})
		}
	}

	for _, component := range logCtx.Components {
		for _, template := range genericTemplates {
			queries = append(queries, Query{
				Text:      fmt.Sprintf(template, component),
				Component: component,
				Priority:  PriorityNormal,
			})
		}
	}

	if len(queries) == 0 {
		for _, category := range logCtx.ErrorCategories {
			queries = append(queries, Query{
				Text:     fmt.Sprintf("agent %s errors", category),
				Priority: PriorityHigh,
			})
		}
	}

	if len(queries) > QueryCap {
		queries = queries[:QueryCap]
	}
	return queries
}
