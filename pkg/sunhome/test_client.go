package sunhome

import "context"

func CreateTestCommander() (Commander, error) {
	return &TestCommander{}, nil
}

// TestCommander records run-mode writes instead of talking to the cloud.
type TestCommander struct {
	Connected bool
	Writes    []uint16
	FailWith  error
}

func (c *TestCommander) Connect(ctx context.Context) error {
	if c.FailWith != nil {
		return c.FailWith
	}
	c.Connected = true
	return nil
}

func (c *TestCommander) SetRunMode(ctx context.Context, code uint16) error {
	if c.FailWith != nil {
		return c.FailWith
	}
	c.Writes = append(c.Writes, code)
	return nil
}

func (c *TestCommander) Close() {
	c.Connected = false
}

// ensure interface compliance
var _ Commander = (*TestCommander)(nil)
