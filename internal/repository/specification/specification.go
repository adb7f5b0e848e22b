package specification

import "gorm.io/gorm"

// Specification is a composable query predicate. Repositories accept any
// number of them and apply each to the gorm query in order.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
