// Package daemon wires the timer controller to its audio channels and runs
// the pieces around it: the headless tick loop, desktop alerts and
// configuration hot-reload.
package daemon
