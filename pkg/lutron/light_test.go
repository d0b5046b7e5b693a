package lutron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingController is a LevelController that records calls.
type recordingController struct {
	sets  [][3]int
	level float64
	err   error
}

func (r *recordingController) SetLevel(_ context.Context, zone, brightness, fade int) error {
	if r.err != nil {
		return r.err
	}
	r.sets = append(r.sets, [3]int{zone, brightness, fade})
	return nil
}

func (r *recordingController) QueryLevel(context.Context, int) (float64, error) {
	return r.level, r.err
}

func TestToPercent(t *testing.T) {
	assert.Equal(t, 0, ToPercent(0))
	assert.Equal(t, 50, ToPercent(128))
	assert.Equal(t, 100, ToPercent(255))
}

func TestFromPercent(t *testing.T) {
	assert.Equal(t, 0, FromPercent(0))
	assert.Equal(t, 191, FromPercent(75))
	assert.Equal(t, 255, FromPercent(100))
}

func TestLight_TurnOn(t *testing.T) {
	ctrl := &recordingController{}
	l := NewLight(ctrl, "Kitchen", 25)

	require.NoError(t, l.TurnOn(context.Background(), 128, 30))

	assert.Equal(t, [][3]int{{25, 50, 30}}, ctrl.sets)
	assert.True(t, l.IsOn())
	assert.Equal(t, 128, l.Brightness())
}

func TestLight_TurnOff(t *testing.T) {
	ctrl := &recordingController{}
	l := NewLight(ctrl, "Kitchen", 25)

	require.NoError(t, l.TurnOn(context.Background(), 255, 0))
	require.NoError(t, l.TurnOff(context.Background(), 1800))

	assert.Equal(t, [][3]int{{25, 100, 0}, {25, 0, 1800}}, ctrl.sets)
	assert.False(t, l.IsOn())
	assert.Equal(t, 0, l.Brightness())
}

func TestLight_FailedCommandKeepsState(t *testing.T) {
	ctrl := &recordingController{err: errors.New("hub unreachable")}
	l := NewLight(ctrl, "Kitchen", 25)

	assert.Error(t, l.TurnOn(context.Background(), 200, 0))
	assert.False(t, l.IsOn())
	assert.Equal(t, 0, l.Brightness())
}

func TestLight_NoZone(t *testing.T) {
	ctrl := &recordingController{}
	l := NewLight(ctrl, "Porch", 0)

	assert.ErrorIs(t, l.TurnOn(context.Background(), 255, 0), ErrInvalidZone)
	assert.ErrorIs(t, l.TurnOff(context.Background(), 0), ErrInvalidZone)
	assert.ErrorIs(t, l.Update(context.Background()), ErrInvalidZone)
	assert.Empty(t, ctrl.sets)
}

func TestLight_TurnOn_InvalidBrightness(t *testing.T) {
	ctrl := &recordingController{}
	l := NewLight(ctrl, "Kitchen", 25)

	assert.ErrorIs(t, l.TurnOn(context.Background(), 256, 0), ErrInvalidBrightness)
	assert.Empty(t, ctrl.sets)
}

func TestLight_Update(t *testing.T) {
	ctrl := &recordingController{level: 75}
	l := NewLight(ctrl, "Kitchen", 25)

	require.NoError(t, l.Update(context.Background()))
	assert.True(t, l.IsOn())
	assert.Equal(t, 191, l.Brightness())

	ctrl.level = 0
	require.NoError(t, l.Update(context.Background()))
	assert.False(t, l.IsOn())
	assert.Equal(t, 0, l.Brightness())
}

func TestLight_WithSession(t *testing.T) {
	hub := newFakeHub(t)
	hub.setLevel(25, 40)
	s := testSession(t, hub)
	ctx := context.Background()

	l := NewLight(s, "Kitchen", 25)
	require.NoError(t, l.Update(ctx))
	assert.Equal(t, 102, l.Brightness())

	require.NoError(t, l.TurnOff(ctx, 60))
	assert.Equal(t, []string{"?OUTPUT,25,1", "#OUTPUT,25,1,0,60"}, hub.received())
}
