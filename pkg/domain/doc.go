// Package domain contains the core entities of the enrichment pipeline:
// registry records, employee-size brackets, domain resolutions, site signals
// and scored output rows. These types are free of infrastructure concerns so
// they can be shared across packages.
package domain
