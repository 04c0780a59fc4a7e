// Package shared holds numeric helpers used by every analytics package:
// two-decimal rounding, zero-guarded ratios, NaN-aware missing values and
// the summary statistics the cleaning and reporting steps rely on.
//
// Missing numeric values are represented as NaN throughout the module. Use
// Missing to produce one and IsMissing to test for it.
//
// The testutil subpackage provides log capture helpers for tests.
package shared
