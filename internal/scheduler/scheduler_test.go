package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"allotment-service/configs"
	"allotment-service/internal/models"
	"allotment-service/internal/repository"
	"allotment-service/internal/repository/sqlstore"
	"allotment-service/internal/service"
)

type fakeReminders struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
	block chan struct{}
}

func (f *fakeReminders) SendDueReminders(ctx context.Context, asOf time.Time) (service.ReminderResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, asOf)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return service.ReminderResult{Sent: 1}, f.err
}

func (f *fakeReminders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	logger, _ := test.NewNullLogger()

	_, err := NewScheduler(&fakeReminders{}, logger, "every tuesday")
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	logger, _ := test.NewNullLogger()
	reminders := &fakeReminders{}

	s, err := NewScheduler(reminders, logger, "@daily")
	require.NoError(t, err)
	fixed := time.Date(2024, 2, 5, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	require.Equal(t, 1, reminders.count())
	assert.True(t, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC).Equal(reminders.calls[0]), "got %s", reminders.calls[0])
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []*gomail.Message
}

func (m *recordingMailer) DialAndSend(messages ...*gomail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
	return nil
}

func TestRunOnce_DueDateLaterInDay(t *testing.T) {
	ctx := context.Background()
	db, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlstore.Migrate(ctx, db))

	logger, _ := test.NewNullLogger()
	mailer := &recordingMailer{}
	services := service.NewService(service.Dependencies{
		Repos:  repository.NewRepository(db),
		Logger: logger,
		Config: &configs.Config{
			Email:    configs.EmailConfig{SenderEmail: "accounts@allotment.test"},
			Reminder: configs.ReminderConfig{Schedule: "@daily", LeadDays: 15},
		},
		Mailer: mailer,
	})

	amount := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}
	n := 4
	_, err = services.Allotment.Register(ctx, &models.PropertyRegistration{
		AllotteeName:  "Anita Rao",
		AllotteeEmail: "anita@example.com",
		SchemeName:    "Sector 21",
		FloorCategory: "LGF",
		Terms: models.PropertyTermsInput{
			TotalSalePrice:            amount("1000000"),
			RegistrationAmount:        amount("50000"),
			AllotmentAmount:           amount("50000"),
			LumpSumDiscount:           amount("0"),
			AnnualInterestRatePercent: amount("12"),
			NumberOfInstallments:      &n,
			AllotmentDate:             "2024-01-15",
		},
	})
	require.NoError(t, err)

	s, err := NewScheduler(services.Reminder, logger, "@daily")
	require.NoError(t, err)
	// installment 1 falls due on 2024-02-15
	s.now = func() time.Time { return time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC) }

	result, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"Upcoming Installment Reminder: Sector 21, installment 1"}, mailer.sent[0].GetHeader("Subject"))
}

func TestRun_LogsFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	reminders := &fakeReminders{err: errors.New("smtp down")}

	s, err := NewScheduler(reminders, logger, "@daily")
	require.NoError(t, err)

	s.run()

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "smtp down")
}

func TestNext(t *testing.T) {
	logger, _ := test.NewNullLogger()

	s, err := NewScheduler(&fakeReminders{}, logger, "@daily")
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 2, 5, 9, 0, 0, 0, time.Local) }

	assert.True(t, time.Date(2024, 2, 6, 0, 0, 0, 0, time.Local).Equal(s.Next()))
}

func TestStartStop_WaitsForRunningSweep(t *testing.T) {
	logger, _ := test.NewNullLogger()
	reminders := &fakeReminders{block: make(chan struct{})}

	s, err := NewScheduler(reminders, logger, "@every 1s")
	require.NoError(t, err)
	s.Start()

	require.Eventually(t, func() bool { return reminders.count() >= 1 }, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, s.Stop(ctx), "stop returns before the blocked sweep ends")

	close(reminders.block)
	assert.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, 1, reminders.count(), "overlapping runs are skipped")
}
