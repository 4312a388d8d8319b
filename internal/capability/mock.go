package capability

import "context"

// MockBattery is a test implementation of Battery.
type MockBattery struct {
	Level int
	State ChargingState
	Err   error
}

func (m *MockBattery) Read(ctx context.Context) (int, ChargingState, error) {
	if m.Err != nil {
		return 0, ChargingUnknown, m.Err
	}
	return m.Level, m.State, nil
}

// MockLocator is a test implementation of Locator. Results are consumed
// in order, one per Locate call, so tests can script a failing precise
// fix followed by a succeeding coarse one.
type MockLocator struct {
	Results []MockFix
	Calls   []bool // highAccuracy flag per call, recorded
}

// MockFix is one scripted Locate outcome.
type MockFix struct {
	Lat string
	Lon string
	Err error
}

func (m *MockLocator) Locate(ctx context.Context, highAccuracy bool) (string, string, error) {
	m.Calls = append(m.Calls, highAccuracy)

	if len(m.Results) == 0 {
		return "", "", context.DeadlineExceeded
	}
	fix := m.Results[0]
	m.Results = m.Results[1:]

	if fix.Err != nil {
		return "", "", fix.Err
	}
	return fix.Lat, fix.Lon, nil
}
