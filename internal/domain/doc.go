// Package domain models geolocated incident reports and the risk zones derived
// from them.
//
// # Incidents
//
// An incident is a single report with a WGS-84 position, an optional category
// (e.g. "robbery", "vandalism") and an optional hour of day (0–23, local time
// of the reporting system). Incidents are owned by the external data layer and
// are never modified by the analysis.
//
// Missing values:
//
//	Category nil  →  counted under the "unspecified" bucket.
//	Hour nil      →  excluded from the hour histogram, still counted in the
//	                 zone size and category counts.
//
// # Risk Zones
//
// A risk zone is a density-based cluster of incidents. Each zone carries:
//
//	lat, lng           arithmetic mean of member coordinates
//	count              member count
//	category_counts    category → count, keys in first-seen order
//	dominant_category  highest count, ties go to the first-seen category
//	hour_histogram     "0".."23" → count
//	danger_slots       [{start, end}] half-open hour ranges, see below
//
// # Danger Slots
//
// A slot {start, end} covers the hours start, start+1, ... up to but not
// including end, modulo 24. Examples:
//
//	{0, 3}   →  00:00–03:00 (hours 0, 1, 2)
//	{22, 1}  →  22:00–01:00 (hours 22, 23, 0)
//	{22, 0}  →  22:00–24:00 (hours 22, 23)
//	{0, 0}   →  every hour of the day was critical
//
// Zones are transient: they are rebuilt on every request and have no identity
// across requests. Zone ids are only unique within one analysis.
package domain
