package repository

import "context"

// Store exposes repositories bound to one open transaction.
type Store interface {
	Rooms() RoomRepository
	Messages() MessageRepository
	Statuses() StatusRepository
}

// Transactor runs fn inside a single transaction. The transaction commits when
// fn returns nil and rolls back when fn returns an error or panics; it is
// released on every path.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
}
