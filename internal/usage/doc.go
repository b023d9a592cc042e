// Package usage turns COUNTER TR_J1 journal usage reports into fiscal
// periods and derives the analytics built on them.
//
// The flow for one batch of reports is:
//
//	TabularRecord -> Normalizer -> FiscalPeriod
//	FiscalPeriod  -> SelectMetric -> Classifier (full year / partial)
//	partial       -> Projector (against every full year) -> projected usage
//	usage + cost  -> CostPerUse
//	periods       -> UsageDistribution, MergeForTrend, Titles
//
// Analyzer runs the whole flow. Everything in this package is a pure
// function of its input: no I/O, no shared state between calls.
package usage
