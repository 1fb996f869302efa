// Package election implements the leader-election state machine from
// spec.md §4.I: idle -> electing -> (leader | follower | waiting) ->
// (leader_active | follower), built on top of pkg/ipc's server lock and an
// HTTP status-endpoint probe.
package election
