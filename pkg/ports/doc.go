/*
Package ports defines the driven ports (interfaces) for the sixarm
controller.

These interfaces decouple the control core from the rig's electronics
and persistence, allowing the same loop to run against real hardware,
the in-memory simulator, or test fakes.

# Key Interfaces

  - Actuator: writes the smoothed pose to the position outputs.
  - Sampler: reads the analog sensors as a pose.
  - Buttons: reads the debounce-raw levels of the four panel buttons.
  - Indicator: drives the mode indicator light.
  - Blob: a fixed-size persisted byte range with an explicit commit.
*/
package ports
