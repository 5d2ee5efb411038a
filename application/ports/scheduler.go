package ports

// Scheduler is the recurring scheduling primitive that drives simulation
// ticks. Schedule registers tick to be called repeatedly until the returned
// cancel function is called. Cancel is idempotent and may be called from
// inside tick; it does not wait for an in-flight call to return.
type Scheduler interface {
	Schedule(tick func()) (cancel func())
}
