// Package property implements the dynamically typed configuration bag carried
// by every workflow node, plus conversions between cty values and plain Go
// data.
//
// Values are cty.Value, which gives the bag a closed set of value kinds
// (string, number, bool, and nested lists, maps and objects) and lets the
// same values flow into HCL evaluation unchanged.
package property
