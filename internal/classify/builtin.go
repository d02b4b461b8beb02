package classify

import (
	"cylbom/internal/graph"
	"cylbom/internal/rules"
)

// Seed class asserted for every entity loaded into the graph; the
// identification rules refine it.
const ClassMaterial = "Material"

func isA(s, o string) rules.Action {
	return rules.Action{Subject: rules.V(s), Predicate: rules.C(graph.PredIsA), Object: rules.C(o)}
}

func patIsA(v, class string) rules.Pattern {
	return rules.Pattern{Subject: rules.V(v), Predicate: rules.C(graph.PredIsA), Object: rules.C(class)}
}

func patAttr(v, pred, bindVar string) rules.Pattern {
	return rules.Pattern{Subject: rules.V(v), Predicate: rules.C(pred), Object: rules.V(bindVar)}
}

func boreTier(name string, tier string, min, max float64) rules.Rule {
	r := rules.Rule{
		Name:     name,
		Priority: 20,
		Enabled:  true,
		Patterns: []rules.Pattern{
			patIsA("x", graph.ClassHydraulicCylinder),
			patAttr("x", graph.PredHasBore, "b"),
		},
		Guards:  []rules.Guard{{Kind: rules.GuardGreaterThan, Var: "b", Number: min - 1}},
		Actions: []rules.Action{isA("x", tier)},
	}
	if max > 0 {
		r.Guards = append(r.Guards, rules.Guard{Kind: rules.GuardLessThan, Var: "b", Number: max + 1})
	}
	return r
}

func strokeTier(name string, tier string, min, max float64) rules.Rule {
	r := boreTier(name, tier, min, max)
	r.Patterns[1] = patAttr("x", graph.PredHasStroke, "s")
	r.Guards[0].Var = "s"
	if len(r.Guards) > 1 {
		r.Guards[1].Var = "s"
	}
	return r
}

func seriesTag(series, tag string) rules.Rule {
	return rules.Rule{
		Name:     "series-" + series,
		Priority: 30,
		Enabled:  true,
		Patterns: []rules.Pattern{
			patIsA("x", graph.ClassHydraulicCylinder),
			patAttr("x", graph.PredHasSeries, "s"),
		},
		Guards:  []rules.Guard{{Kind: rules.GuardEqual, Var: "s", Value: series}},
		Actions: []rules.Action{isA("x", tag)},
	}
}

func rodEndTag(code, tag string) rules.Rule {
	return rules.Rule{
		Name:     "rodend-" + code,
		Priority: 30,
		Enabled:  true,
		Patterns: []rules.Pattern{
			patIsA("x", graph.ClassHydraulicCylinder),
			patAttr("x", graph.PredHasRodEnd, "r"),
		},
		Guards:  []rules.Guard{{Kind: rules.GuardEqual, Var: "r", Value: code}},
		Actions: []rules.Action{isA("x", tag)},
	}
}

// BuiltinRules returns the fixed classification rule set: material
// identification, bore and stroke tiers, series and rod-end tags, and
// the derived combination classes. External rule files extend but
// never replace this set.
func BuiltinRules() []rules.Rule {
	mustRegex := func(name, v, pattern, class string, priority int) rules.Rule {
		return rules.Rule{
			Name:     name,
			Priority: priority,
			Enabled:  true,
			Patterns: []rules.Pattern{patIsA(v, ClassMaterial)},
			Guards:   []rules.Guard{{Kind: rules.GuardRegex, Var: v, Regex: regexpMust(pattern)}},
			Actions:  []rules.Action{isA(v, class)},
		}
	}

	rs := []rules.Rule{
		// Identification runs first so everything downstream can key
		// off the derived class.
		mustRegex("identify-cylinder", "x", `^[34].{14}`, graph.ClassHydraulicCylinder, 10),
		mustRegex("identify-component", "x", `^2.{6}`, graph.ClassComponentItem, 10),

		boreTier("bore-micro", graph.TierBoreMicro, 10, 29),
		boreTier("bore-small", graph.TierBoreSmall, 30, 49),
		boreTier("bore-medium", graph.TierBoreMedium, 50, 99),
		boreTier("bore-large", graph.TierBoreLarge, 100, 149),
		boreTier("bore-extra-large", graph.TierBoreExtraLarge, 150, 0),

		strokeTier("stroke-short", graph.TierStrokeShort, 0, 99),
		strokeTier("stroke-medium", graph.TierStrokeMedium, 100, 499),
		strokeTier("stroke-long", graph.TierStrokeLong, 500, 999),
		strokeTier("stroke-extra-long", graph.TierStrokeExtraLong, 1000, 0),

		seriesTag("10", graph.TagSeriesStandard),
		seriesTag("11", graph.TagSeriesHeavyDuty),
		seriesTag("12", graph.TagSeriesCompact),
		seriesTag("13", graph.TagSeriesLightDuty),

		rodEndTag("Y", graph.TagRodEndYoke),
		rodEndTag("I", graph.TagRodEndInternalThread),
		rodEndTag("E", graph.TagRodEndExternalThread),
		rodEndTag("P", graph.TagRodEndPin),

		// Derived combinations.
		{
			Name:     "complex-configuration",
			Priority: 40,
			Enabled:  true,
			Patterns: []rules.Pattern{
				patIsA("x", graph.TierBoreLarge),
				patIsA("x", graph.TierStrokeLong),
				patIsA("x", graph.TagSeriesHeavyDuty),
			},
			Actions: []rules.Action{isA("x", graph.ClassComplexConfiguration)},
		},
		{
			Name:     "high-pressure",
			Priority: 40,
			Enabled:  true,
			Patterns: []rules.Pattern{
				patIsA("x", graph.TagSeriesHeavyDuty),
				patAttr("x", graph.PredHasBore, "b"),
			},
			Guards:  []rules.Guard{{Kind: rules.GuardGreaterThan, Var: "b", Number: 99}},
			Actions: []rules.Action{isA("x", graph.ClassHighPressure)},
		},
		{
			Name:     "redundant-sealing",
			Priority: 41,
			Enabled:  true,
			Patterns: []rules.Pattern{patIsA("x", graph.ClassHighPressure)},
			Actions: []rules.Action{{
				Subject:   rules.V("x"),
				Predicate: rules.C(graph.PredRequires),
				Object:    rules.C(graph.ReqRedundantSealing),
			}},
		},
		{
			Name:     "enhanced-bushing",
			Priority: 41,
			Enabled:  true,
			Patterns: []rules.Pattern{
				patIsA("x", graph.TierStrokeLong),
				patIsA("x", graph.TagSeriesHeavyDuty),
			},
			Actions: []rules.Action{{
				Subject:   rules.V("x"),
				Predicate: rules.C(graph.PredRequires),
				Object:    rules.C(graph.ReqEnhancedBushing),
			}},
		},
	}
	rules.SortRules(rs)
	return rs
}
