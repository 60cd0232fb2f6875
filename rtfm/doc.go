// Package rtfm is the runtime support library linked into firmware emitted
// by package app. It provides the cycle-counter time source, the SRP
// critical-section primitive, and thin wrappers around the NVIC and the
// peripherals the generated code does not own outright.
//
// Nothing in this package allocates. Every type here is meant to live in
// static storage for the lifetime of the program, the same way the teacher
// package wires a CPU's Registers and Bus directly into static call paths
// instead of routing through interfaces that allocate.
package rtfm
