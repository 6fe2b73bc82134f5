package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendario/internal/apperr"
	"calendario/internal/mocks"
	"calendario/internal/model"
)

var fixedNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestSchedule_PastFireTimeIsNotScheduled(t *testing.T) {
	ctrl := gomock.NewController(t)
	capability := mocks.NewMockCapability(ctrl)
	// No calls expected on the capability.

	metrics := NewMetrics(prometheus.NewRegistry())
	s := NewScheduler(capability, clock, time.UTC, metrics)
	ev := model.Event{
		ID:                    1,
		Description:           "Standup",
		Date:                  time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
		Notification:          true,
		NotificationMinOffset: 45,
	}

	status, err := s.Schedule(context.Background(), ev, model.TimeFormat24)
	require.NoError(t, err)
	assert.Equal(t, NotScheduled, status)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Skipped))
}

func TestSchedule_DisabledNotificationIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	capability := mocks.NewMockCapability(ctrl)

	s := NewScheduler(capability, clock, time.UTC, nil)
	status, err := s.Schedule(context.Background(), model.Event{ID: 3, Date: fixedNow.Add(time.Hour)}, model.TimeFormat24)
	require.NoError(t, err)
	assert.Equal(t, NotScheduled, status)
}

func TestSchedule_CancelsBeforeEachSchedule(t *testing.T) {
	ctrl := gomock.NewController(t)
	capability := mocks.NewMockCapability(ctrl)

	ev := model.Event{
		ID:                    42,
		Description:           "Dentist",
		Date:                  time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC),
		Notification:          true,
		NotificationMinOffset: 60,
	}
	fire := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

	gomock.InOrder(
		capability.EXPECT().Cancel(gomock.Any(), "42").Return(nil),
		capability.EXPECT().ScheduleOnce(gomock.Any(), "42", "⏰ Upcoming event at 03:30 PM", "Dentist", fire).Return(nil),
		capability.EXPECT().Cancel(gomock.Any(), "42").Return(nil),
		capability.EXPECT().ScheduleOnce(gomock.Any(), "42", "⏰ Upcoming event at 03:30 PM", "Dentist", fire).Return(nil),
	)

	metrics := NewMetrics(prometheus.NewRegistry())
	s := NewScheduler(capability, clock, time.UTC, metrics)
	for i := 0; i < 2; i++ {
		status, err := s.Schedule(context.Background(), ev, model.TimeFormat12)
		require.NoError(t, err)
		assert.Equal(t, Scheduled, status)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Scheduled))
}

func TestSchedule_CapabilityFailureIsSchedulingError(t *testing.T) {
	ctrl := gomock.NewController(t)
	capability := mocks.NewMockCapability(ctrl)
	capability.EXPECT().Cancel(gomock.Any(), "5").Return(nil)
	capability.EXPECT().ScheduleOnce(gomock.Any(), "5", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("permission denied"))

	s := NewScheduler(capability, clock, time.UTC, nil)
	ev := model.Event{ID: 5, Description: "x", Date: fixedNow.Add(2 * time.Hour), Notification: true, NotificationMinOffset: 10}

	status, err := s.Schedule(context.Background(), ev, model.TimeFormat24)
	assert.Equal(t, NotScheduled, status)
	assert.True(t, apperr.IsScheduling(err))
}

func TestUnschedule_SwallowsFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	capability := mocks.NewMockCapability(ctrl)
	capability.EXPECT().Cancel(gomock.Any(), "9").Return(errors.New("boom"))

	s := NewScheduler(capability, clock, time.UTC, nil)
	s.Unschedule(context.Background(), 9)
}

func TestDescribe(t *testing.T) {
	ev := model.Event{Date: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), NotificationMinOffset: 90}
	assert.Equal(t, "Notification disabled", Describe(ev, model.TimeFormat24, time.UTC))

	ev.Notification = true
	assert.Equal(t, "You will be notified on May 1, 2024 07:30", Describe(ev, model.TimeFormat24, time.UTC))
}
