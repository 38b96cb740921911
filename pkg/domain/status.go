package domain

// Status is the snapshot exposed by the status query and pushed on the
// event stream. Current is the smoothed pose actually at the servos,
// not the in-flight target.
type Status struct {
	Mode      Mode   `json:"mode"`
	Label     string `json:"label"`
	StepCount int    `json:"step_count"`
	Cursor    int    `json:"cursor"`
	Current   Pose   `json:"current"`
	Connected bool   `json:"connected"`
}
