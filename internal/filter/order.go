package filter

import (
	domainerrors "github.com/playlore/playlore-server/internal/errors"
)

// OrderField names a sortable game attribute.
type OrderField string

// Sortable fields.
const (
	OrderByTitle        OrderField = "title"
	OrderByDeveloper    OrderField = "developer"
	OrderByPublisher    OrderField = "publisher"
	OrderBySeries       OrderField = "series"
	OrderByPlatform     OrderField = "platform"
	OrderByLibrary      OrderField = "library"
	OrderByDateAdded    OrderField = "dateAdded"
	OrderByDateModified OrderField = "dateModified"
	OrderByReleaseDate  OrderField = "releaseDate"
)

// Direction is a sort direction.
type Direction string

// Directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Order is a (field, direction) ordering. Ties always break on id in the same direction.
type Order struct {
	Field     OrderField `json:"field"`
	Direction Direction  `json:"direction"`
}

// DefaultOrder sorts by title ascending.
var DefaultOrder = Order{Field: OrderByTitle, Direction: Asc}

// orderColumns maps order fields to their SQL column. All are text columns.
var orderColumns = map[OrderField]string{
	OrderByTitle:        "g.order_title",
	OrderByDeveloper:    "g.developer",
	OrderByPublisher:    "g.publisher",
	OrderBySeries:       "g.series",
	OrderByPlatform:     "g.platforms_str",
	OrderByLibrary:      "g.library",
	OrderByDateAdded:    "g.date_added",
	OrderByDateModified: "g.date_modified",
	OrderByReleaseDate:  "g.release_date",
}

// normalized fills defaults and validates the ordering.
func (o Order) normalized() (Order, error) {
	if o.Field == "" {
		o.Field = DefaultOrder.Field
	}
	if o.Direction == "" {
		o.Direction = Asc
	}
	if _, ok := orderColumns[o.Field]; !ok {
		return o, domainerrors.Validationf("unknown order field %q", o.Field)
	}
	if o.Direction != Asc && o.Direction != Desc {
		return o, domainerrors.Validationf("unknown order direction %q", o.Direction)
	}
	return o, nil
}
