package logic

import "fmt"

// Validate checks the fields the kind depends on.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Window < 0 || s.ForceInterval < 0 || s.EnterWindow < 0 ||
		s.LeaveWindow < 0 || s.RiseWindow < 0 || s.FallWindow < 0 {
		return fmt.Errorf("windows must not be negative")
	}
	switch s.Kind.Canonical() {
	case KindChange, KindPeakToPeak, KindAverage, KindStdDev, KindMeanAbsDev,
		KindThreshold, KindMax, KindMin:
	case KindChangeForced:
		if s.ForceInterval <= 0 {
			return fmt.Errorf("force_interval must be positive")
		}
	case KindBuffered, KindBufferedAverage:
		if s.Capacity <= 0 {
			return fmt.Errorf("capacity must be positive")
		}
	case KindRange:
		if s.Min >= s.Max {
			return fmt.Errorf("min must be below max")
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownKind, s.Kind)
	}
	return nil
}
