// Package bus implements the multicast bus that carries actions and side
// effects inside a store.
//
// ARCHITECTURE:
//
// Every subscriber owns an unbounded FIFO queue. Send fans a value out to all
// live queues while holding the bus lock, so:
//   - a slow subscriber never blocks or drops values for another
//   - all subscribers observe concurrent sends in the same relative order
//   - a subscriber sees exactly the values sent after Subscribe returned
//
// Close is terminal. Live subscriptions drain what they already buffered and
// then observe end-of-stream. Cancel detaches a single subscription and
// discards its buffer.
//
// Dropping values is never a bus default. Consumers that want to shed load
// compose flow.DropWhileBusy on top of a subscription.
package bus
