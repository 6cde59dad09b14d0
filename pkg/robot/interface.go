// Package robot defines the contracts between the control core and the
// hardware it runs on: sensor sample types, the input bus and the motor
// output.
//
// Drivers live outside this module. Consumers should depend only on the
// small interfaces they actually use.
package robot

// MotorDriver applies a wheel command to the drivetrain.
type MotorDriver interface {
	SetMotors(cmd MotorCommand) error
}

// MotorDriverFunc adapts a function to MotorDriver.
type MotorDriverFunc func(cmd MotorCommand) error

// SetMotors calls f(cmd).
func (f MotorDriverFunc) SetMotors(cmd MotorCommand) error {
	return f(cmd)
}
