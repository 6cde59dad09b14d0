package robot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chamburr/soccer/pkg/signal"
)

// mockDriver records all commands for testing
type mockDriver struct {
	mu    sync.Mutex
	calls []MotorCommand
	fail  bool
}

func (m *mockDriver) SetMotors(cmd MotorCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("bus error")
	}
	m.calls = append(m.calls, cmd)
	return nil
}

func (m *mockDriver) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockDriver) last() MotorCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return MotorCommand{}
	}
	return m.calls[len(m.calls)-1]
}

func TestController_SendsPending(t *testing.T) {
	mock := &mockDriver{}
	ctrl := NewRateController(mock, 10*time.Millisecond)

	ctrl.Set(MotorCommand{FL: 50, FR: -50, BL: 50, BR: -50})
	ctrl.tick()

	if mock.callCount() != 1 {
		t.Fatalf("calls: got %d, want 1", mock.callCount())
	}
	if got := mock.last(); got.FL != 50 || got.BR != -50 {
		t.Errorf("last command: got %+v", got)
	}
}

func TestController_SkipsUnchanged(t *testing.T) {
	mock := &mockDriver{}
	ctrl := NewRateController(mock, 10*time.Millisecond)

	cmd := MotorCommand{FL: 30, FR: 30, BL: 30, BR: 30}
	ctrl.Set(cmd)
	ctrl.tick()
	ctrl.Set(cmd)
	ctrl.tick()
	ctrl.tick()

	if mock.callCount() != 1 {
		t.Errorf("calls: got %d, want 1 (repeats skipped)", mock.callCount())
	}
	ticks, skipped, _ := ctrl.Stats()
	if ticks != 3 || skipped != 2 {
		t.Errorf("stats: ticks=%d skipped=%d, want 3 and 2", ticks, skipped)
	}
}

func TestController_RetriesAfterError(t *testing.T) {
	mock := &mockDriver{fail: true}
	ctrl := NewRateController(mock, 10*time.Millisecond)

	ctrl.Set(MotorCommand{FL: 40})
	ctrl.tick()

	mock.mu.Lock()
	mock.fail = false
	mock.mu.Unlock()

	ctrl.tick()

	if mock.callCount() != 1 {
		t.Fatalf("calls: got %d, want 1 after retry", mock.callCount())
	}
	if _, _, errs := ctrl.Stats(); errs != 1 {
		t.Errorf("errors: got %d, want 1", errs)
	}
}

func TestController_NilDriver(t *testing.T) {
	ctrl := NewRateController(nil, 10*time.Millisecond)
	ctrl.Set(MotorCommand{FL: 1})
	ctrl.tick() // must not panic

	if got := ctrl.Current(); got.FL != 1 {
		t.Errorf("Current: got %+v", got)
	}
}

func TestController_RunForwardsAndStops(t *testing.T) {
	mock := &mockDriver{}
	ctrl := NewRateController(mock, time.Millisecond)
	src := signal.New[MotorCommand]()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx, src) }()

	src.Send(MotorCommand{FL: 100, FR: -100, BL: 100, BR: -100})

	deadline := time.Now().Add(time.Second)
	for mock.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if mock.callCount() == 0 {
		t.Fatal("command never reached the driver")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mock.last(); !got.Zero() {
		t.Errorf("motors not stopped on shutdown: %+v", got)
	}
}

func TestSides_Any(t *testing.T) {
	if (Sides{}).Any() {
		t.Error("empty Sides reports Any")
	}
	if !(Sides{Back: true}).Any() {
		t.Error("Back not detected")
	}
}

func TestCameraData_Detection(t *testing.T) {
	c := CameraData{Angle: 0, Dist: 0, GoalAngle: 10, GoalDist: 0}
	if c.BallDetected() {
		t.Error("(0, 0) ball should be undetected")
	}
	if !c.GoalDetected() {
		t.Error("goal with angle only should be detected")
	}
}
