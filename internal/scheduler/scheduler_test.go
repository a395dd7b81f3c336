package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestItineraryLaunchDelay_Bands(t *testing.T) {
	assert.Equal(t, 5*time.Minute, itineraryLaunchDelay(12*time.Hour))
	assert.Equal(t, 30*time.Minute, itineraryLaunchDelay(3*24*time.Hour))
	assert.Equal(t, 1*time.Hour, itineraryLaunchDelay(10*24*time.Hour))
	assert.Equal(t, 2*time.Hour, itineraryLaunchDelay(45*24*time.Hour))
}
