package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDoctorCommand(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("doctor")
	assert.Contains(t, out, "✓ Backend: fake")
	assert.Contains(t, out, "✓ 2 packages installed")
	assert.Contains(t, out, "⚠ Default state is not frozen")

	c.mustRun("freeze")
	out = c.mustRun("doctor")
	assert.Contains(t, out, "All checks passed")

	c.fake.ListErr = errors.New("brew not found")
	out, err := c.run("doctor")
	assert.Error(t, err)
	assert.Contains(t, out, "✗ Cannot list packages")
}
