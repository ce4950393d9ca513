package domain

// Tables lists every migrated model. Order matters: referenced tables
// are created before the tables holding foreign keys to them.
var Tables = []interface{}{
	// Catalog
	&Product{},
	// Orders
	&Order{},
	&OrderLine{},
	// System
	&OprLog{},
}
