// Package nats publishes device telemetry over NATS and accepts settings
// updates by request/reply.
//
// # Subject Hierarchy
//
//	pomodorox.{device}.phase              # phase transitions (device → fleet)
//	pomodorox.{device}.settings           # applied settings (device → fleet)
//	pomodorox.{device}.heartbeat          # liveness, every few seconds
//	pomodorox.{device}.control.settings   # request/reply settings update
//
// Publishing is fire-and-forget core NATS. When the server is unreachable
// the client keeps running offline and publishes are dropped.
//
// # Debugging with nats CLI
//
// Watch everything a device sends:
//
//	nats sub "pomodorox.desk.>"
//
// Change settings remotely:
//
//	nats req "pomodorox.desk.control.settings" '{"debug":false,"work_delay":1500000,"rest_delay":300000}'
package nats
