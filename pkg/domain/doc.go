/*
Package domain contains the core domain models for the sixarm controller.

It defines the fundamental entities of the rig: the Pose (one target or
measured position for all six channels), the operating Mode with its
guard predicates and indicator mapping, and the Trigger vocabulary the
mode controller dispatches on. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Pose: an immutable six-channel pulse-width vector.
  - Mode: the rig's operating state (idle, manual, remote, playback, fault).
  - Trigger: a normalized external or internal event for the mode controller.
  - Reject: a typed rejection carrying the trigger, the mode it hit, and why.
*/
package domain
