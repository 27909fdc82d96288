package engine

import "fmt"

// ColumnResolutionError means a required column could not be located in one
// of the input datasets. Fatal for the run.
type ColumnResolutionError struct {
	Dataset string // "internal" or "advertiser"
	Column  string
}

func (e *ColumnResolutionError) Error() string {
	return fmt.Sprintf("%s dataset: cannot resolve column %q", e.Dataset, e.Column)
}

// KeyConstructionError means a row's site identifier was not coercible to an
// integer. Fatal for the row only: the row is skipped and counted.
type KeyConstructionError struct {
	Dataset string
	SiteID  string
}

func (e *KeyConstructionError) Error() string {
	return fmt.Sprintf("%s dataset: site id %q is not an integer", e.Dataset, e.SiteID)
}
