// Package dispatch sends one message per address in fixed-size batches.
//
// Addresses inside a batch are sent concurrently; batches run strictly one
// after another with a fixed pause in between. A failed or panicking send is
// counted and logged but never aborts the run, so Successful+Failed always
// equals the number of addresses.
package dispatch
